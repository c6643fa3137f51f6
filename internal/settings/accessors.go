package settings

import (
	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/events"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

// CANSettingsFor returns the confirmed CAN settings of net.
func (s *DeviceSettings) CANSettingsFor(net network.NetID) (CANSettings, error) {
	off, err := s.canOffset(net)
	if err != nil {
		return CANSettings{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DecodeCANSettings(s.deviceRAM[off:])
}

// PendingCANSettingsFor returns the locally edited CAN settings of net.
func (s *DeviceSettings) PendingCANSettingsFor(net network.NetID) (CANSettings, error) {
	off, err := s.canOffset(net)
	if err != nil {
		return CANSettings{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DecodeCANSettings(s.pending[off:])
}

// SetCANSettingsFor writes cfg into pending.
func (s *DeviceSettings) SetCANSettingsFor(net network.NetID, cfg CANSettings) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	off, err := s.canOffset(net)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cfg.Encode(s.pending[off:])
}

// CANFDSettingsFor returns the confirmed CAN FD settings of net.
func (s *DeviceSettings) CANFDSettingsFor(net network.NetID) (CANFDSettings, error) {
	off, err := s.canFDOffset(net)
	if err != nil {
		return CANFDSettings{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DecodeCANFDSettings(s.deviceRAM[off:])
}

// PendingCANFDSettingsFor returns the locally edited CAN FD settings of net.
func (s *DeviceSettings) PendingCANFDSettingsFor(net network.NetID) (CANFDSettings, error) {
	off, err := s.canFDOffset(net)
	if err != nil {
		return CANFDSettings{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DecodeCANFDSettings(s.pending[off:])
}

// SetCANFDSettingsFor writes cfg into pending.
func (s *DeviceSettings) SetCANFDSettingsFor(net network.NetID, cfg CANFDSettings) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	off, err := s.canFDOffset(net)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cfg.Encode(s.pending[off:])
}

// GetBaudrateFor returns the confirmed classic baud rate of net in bits
// per second.
func (s *DeviceSettings) GetBaudrateFor(net network.NetID) (int64, error) {
	cfg, err := s.CANSettingsFor(net)
	if err != nil {
		return 0, err
	}
	bps, ok := EnumToBaudrate(cfg.Baudrate)
	if !ok {
		return 0, s.fail(newError(ErrTypeBaudrate, nil, "%s has unknown baud rate code %d", net, cfg.Baudrate))
	}
	return bps, nil
}

// SetBaudrateFor sets the classic baud rate of net in pending. Rates above
// 1 Mbit/s are rejected.
func (s *DeviceSettings) SetBaudrateFor(net network.NetID, bps int64) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if bps > MaxClassicBaudrate {
		return s.fail(newError(ErrTypeBaudrate, nil, "%d bit/s is above the classic CAN limit", bps))
	}
	code, ok := BaudrateToEnum(bps)
	if !ok {
		return s.fail(newError(ErrTypeBaudrate, nil, "%d bit/s is not a supported rate", bps))
	}
	off, err := s.canOffset(net)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := DecodeCANSettings(s.pending[off:])
	if err != nil {
		return err
	}
	cfg.SetBaudrate = BaudrateAuto
	cfg.Baudrate = code
	cfg.AutoBaud = 0
	return cfg.Encode(s.pending[off:])
}

// GetFDBaudrateFor returns the confirmed CAN FD data rate of net.
func (s *DeviceSettings) GetFDBaudrateFor(net network.NetID) (int64, error) {
	cfg, err := s.CANFDSettingsFor(net)
	if err != nil {
		return 0, err
	}
	bps, ok := EnumToBaudrate(cfg.FDBaudrate)
	if !ok {
		return 0, s.fail(newError(ErrTypeBaudrate, nil, "%s has unknown FD baud rate code %d", net, cfg.FDBaudrate))
	}
	return bps, nil
}

// SetFDBaudrateFor sets the CAN FD data rate of net in pending.
func (s *DeviceSettings) SetFDBaudrateFor(net network.NetID, bps int64) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	code, ok := BaudrateToEnum(bps)
	if !ok {
		return s.fail(newError(ErrTypeBaudrate, nil, "%d bit/s is not a supported FD rate", bps))
	}
	off, err := s.canFDOffset(net)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := DecodeCANFDSettings(s.pending[off:])
	if err != nil {
		return err
	}
	cfg.FDBaudrate = code
	return cfg.Encode(s.pending[off:])
}

func (s *DeviceSettings) canOffset(net network.NetID) (int, error) {
	off, ok := s.layout.CANOffset(net)
	if !ok {
		return 0, s.fail(newError(ErrTypeNetwork, nil, "no CAN settings for %s", net))
	}
	return off, nil
}

func (s *DeviceSettings) canFDOffset(net network.NetID) (int, error) {
	off, ok := s.layout.CANFDOffset(net)
	if !ok {
		e := newError(ErrTypeNetwork, nil, "no CAN FD settings for %s", net)
		s.logger.Debug("Settings operation failed", zap.Error(e))
		s.report(events.CANFDSettingsNotAvailable, events.Error)
		return 0, e
	}
	return off, nil
}
