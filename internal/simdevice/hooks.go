package simdevice

import (
	"bytes"
	"slices"

	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/settings"
)

// SetMutator installs a function that edits the settings RAM after every
// accepted SetSettings, before the acknowledgement goes out.
func (d *Device) SetMutator(fn func(ram []byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mutate = fn
}

// SetNAck makes the device answer cmd with a negative acknowledgement.
func (d *Device) SetNAck(cmd message.Command, nack bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nack[cmd] = nack
}

// SetSilent makes the device ignore cmd.
func (d *Device) SetSilent(cmd message.Command, silent bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent[cmd] = silent
}

// SetSettingsVersion changes the version reported in settings replies.
func (d *Device) SetSettingsVersion(v uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settingsVersion = v
}

// CorruptSettingsChecksum makes settings replies carry a wrong checksum.
func (d *Device) CorruptSettingsChecksum(corrupt bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.corruptChecksum = corrupt
}

// KeepWrittenChecksum makes settings replies carry the checksum of the
// last accepted write instead of one computed over RAM. Combined with a
// mutator this reproduces firmware that edits fields without updating
// the checksum.
func (d *Device) KeepWrittenChecksum(keep bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staleChecksum = keep
}

// SetSettings replaces the settings RAM.
func (d *Device) SetSettings(b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ram = bytes.Clone(b)
	d.storedChecksum = settings.CalculateGSChecksum(d.ram)
}

// Settings returns a copy of the settings RAM.
func (d *Device) Settings() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return bytes.Clone(d.ram)
}

// Saved returns a copy of the saved settings.
func (d *Device) Saved() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return bytes.Clone(d.flash)
}

// Commands lists every command received, in order.
func (d *Device) Commands() []message.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.commands)
}

// CommandCount returns how many times cmd was received.
func (d *Device) CommandCount(cmd message.Command) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.commands {
		if c == cmd {
			n++
		}
	}
	return n
}

// NetworkEnabled reports the last EnableNetworkCommunication state.
func (d *Device) NetworkEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.networkEnabled
}
