// Package packetizer frames the raw transport byte stream into packets and
// wraps outbound packet bodies for transmission.
//
// # Wire Format
//
// Every packet begins with the sync byte 0xAA followed by a header byte.
//
// Short form (payload of 1 to 15 bytes, NetID below 16):
//
//	0xAA | NetID<<4 | len | payload[len] | checksum
//
// Long form (header low nibble 0):
//
//	0xAA | 0x?0 | len LE16 | NetID LE16 | payload[len] | checksum
//
// The trailing checksum is the additive 8-bit sum of every byte after the
// sync byte. It is always present on the wire. With DisableChecksum the
// packetizer writes 0x00 and skips verification on input.
//
// Devices that require 16-bit alignment pad every odd-length packet with a
// single 'A' (0x41). With Align16Bit the packetizer emits that padding in
// Wrap and discards it in Input.
//
// # Resynchronization
//
// Bytes that are not a sync byte are dropped one at a time. A candidate that
// fails its checksum or carries an impossible long-form length costs exactly
// one byte, so a real packet hidden behind a false header is still found.
//
// # Usage
//
//	p := packetizer.New(packetizer.Options{}, mgr.Report)
//	if p.Input(chunk) {
//	    for _, pkt := range p.Output() {
//	        msg := decoder.Decode(pkt)
//	        ...
//	    }
//	}
package packetizer
