// Package network identifies the logical networks a device exposes.
//
// Every packet on the wire carries a NetID. The NetID selects both the
// physical bus a frame belongs to (HSCAN, LIN, Ethernet, ...) and, for the
// internal networks, the kind of device response being delivered (Main51
// command replies, settings reads, reset status, ...).
//
// # Types
//
// Each NetID maps to exactly one Type. The decoder dispatches on the Type
// first and falls back to the NetID for Internal and Other networks:
//
//	net := network.New(network.HSCAN)
//	net.Type()   // network.TypeCAN
//	net.String() // "HSCAN"
//
// NetIDs can also be parsed from their names, which is how profiles in the
// configuration file and CLI flags refer to them:
//
//	id, err := network.ParseNetID("HSCAN2")
package network
