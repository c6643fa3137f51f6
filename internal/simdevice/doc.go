// Package simdevice is an in-process device that speaks the wire protocol.
//
// A Device implements the communication Transport interface. Bytes written
// by the host are framed and answered the way firmware does: serial number,
// hardware info, component versions, the settings read, write, save and
// defaults commands, and TX receipts for transmitted CAN frames. Hooks let
// tests make it mutate settings on write, refuse commands, or stay silent.
package simdevice
