// Package settings reads and writes the device settings structure.
//
// A DeviceSettings keeps two copies of the structure:
//
//   - deviceRAM is the last state confirmed by the device.
//   - pending is the locally edited state that Apply will write.
//
// Setters only ever touch pending. Refresh and Apply overwrite both buffers
// with what the device reports, so after every completed round trip the two
// are equal to the device's ground truth.
//
// # Envelope
//
// The device sends and accepts the structure inside a small envelope:
//
//	reply:  version u16 | length u16 | checksum u16 | payload
//	write:  0x00 | version u16 | length u16 | checksum u16 | payload
//
// All fields are little endian. The checksum is CalculateGSChecksum over the
// payload.
//
// # Apply
//
// Firmware may adjust fields on write (auto-negotiated values) without
// updating the checksum it reports. Apply therefore writes twice: after the
// first acknowledged write it re-reads the structure ignoring the checksum,
// recomputes the checksum and writes again. Only the second acknowledged
// write counts as committed. A final refresh always runs so local state
// converges on what the device holds.
package settings
