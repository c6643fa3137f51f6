package communication

import (
	"fmt"
	"time"

	"github.com/intrepidcs/libicsneo-sub002/internal/filter"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
)

// DefaultSettingsTimeout bounds GetSettingsSync when no timeout is given.
const DefaultSettingsTimeout = 50 * time.Millisecond

// GetSerialNumberSync requests the device serial number.
func (c *Communication) GetSerialNumberSync(timeout time.Duration) (*message.SerialNumber, error) {
	msg, err := c.WaitForMessageSync(func() error {
		return c.SendCommand(message.CmdRequestSerialNumber)
	}, filter.NewMain51Filter(message.CmdRequestSerialNumber), timeout)
	if err != nil {
		return nil, err
	}
	if msg.SerialNumber == nil {
		return nil, fmt.Errorf("serial number: %w", ErrNoResponse)
	}
	return msg.SerialNumber, nil
}

// GetHardwareInfoSync requests manufacturing and revision information.
func (c *Communication) GetHardwareInfoSync(timeout time.Duration) (*message.HardwareInfo, error) {
	msg, err := c.WaitForMessageSync(func() error {
		return c.SendCommand(message.CmdGetHardwareInfo)
	}, filter.NewMain51Filter(message.CmdGetHardwareInfo), timeout)
	if err != nil {
		return nil, err
	}
	if msg.HardwareInfo == nil {
		return nil, fmt.Errorf("hardware info: %w", ErrNoResponse)
	}
	return msg.HardwareInfo, nil
}

// GetSettingsSync requests the raw settings reply: the
// {version, length, checksum} envelope followed by the settings bytes.
func (c *Communication) GetSettingsSync(timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultSettingsTimeout
	}
	msg, err := c.WaitForMessageSync(func() error {
		return c.SendCommand(message.CmdGetSettings)
	}, filter.ByKind(message.KindReadSettings), timeout)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// GetComponentVersionsSync lists firmware component versions.
func (c *Communication) GetComponentVersionsSync(timeout time.Duration) ([]message.ComponentVersion, error) {
	msg, err := c.WaitForMessageSync(func() error {
		return c.SendExtendedCommand(message.ExtGetComponentVersions, nil)
	}, filter.ByKind(message.KindComponentVersions), timeout)
	if err != nil {
		return nil, err
	}
	return msg.ComponentVersions, nil
}

// EnableNetworkCommunication turns bus traffic reporting on or off.
func (c *Communication) EnableNetworkCommunication(enable bool) error {
	var arg byte
	if enable {
		arg = 1
	}
	return c.SendCommand(message.CmdEnableNetworkCommunication, arg)
}
