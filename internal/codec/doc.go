// Package codec converts between framed packets and typed messages.
//
// The Decoder dispatches on the packet's network type first. CAN networks
// carry the 24-byte hardware frame; Internal networks carry device replies
// whose layout depends on the NetID (and, for Main51, on the command byte).
// Anything the decoder does not recognize becomes a KindRaw message so no
// traffic is silently lost. Malformed input never panics: Decode returns nil
// and reports a PacketDecodingError.
//
// # Hardware CAN frame
//
// All multi-byte fields are little endian.
//
//	offset  size  field
//	0       2     IDE:1 SRR:1 SID:11 EDL:1 BRS:1 ESI:1
//	2       2     EID:12 TXMSG:1 TXAborted:1 TXLostArb:1 TXError:1
//	4       2     DLC:4 RB0:1 IVRIF:1 HVEnable:1 ExtNetIdx:1 RB1:1 RTR:1 EID2:6
//	6       8     data[0:8]
//	14      2     stats
//	16      8     TS:60 reserved:3 IsExtended:1
//
// CAN FD frames with more than eight bytes append NetID (2), length (2) and
// the remaining data after the fixed frame.
//
// The Encoder builds the same layout for transmission and hands the body to
// the packetizer for the sync byte, header and checksum.
package codec
