package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/communication"
	"github.com/intrepidcs/libicsneo-sub002/internal/config"
	"github.com/intrepidcs/libicsneo-sub002/internal/events"
	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
	"github.com/intrepidcs/libicsneo-sub002/internal/settings"
	"github.com/intrepidcs/libicsneo-sub002/internal/simdevice"
	"github.com/intrepidcs/libicsneo-sub002/internal/transport"
)

// loadRegistry reads the configuration file named by --config, or the
// default one. It returns the path it used.
func loadRegistry() (*config.Registry, string, error) {
	if configPath != "" {
		reg, err := config.LoadRegistryFrom(configPath)
		return reg, configPath, err
	}
	path, err := config.GetConfigPath()
	if err != nil {
		return nil, "", err
	}
	reg, err := config.LoadRegistry()
	return reg, path, err
}

// newTransport builds the byte stream a profile describes.
func newTransport(p *config.Profile) (communication.Transport, error) {
	switch p.Transport.Type {
	case config.TransportSerial:
		return transport.NewSerial(p.Transport.Port, p.Transport.BaudRate), nil
	case config.TransportTCP:
		return transport.NewTCP(p.Transport.Address), nil
	case config.TransportWebSocket:
		return transport.NewWebSocket(p.Transport.URL), nil
	case config.TransportSim:
		cfg := simdevice.DefaultConfig()
		cfg.Layout = p.SettingsLayout()
		cfg.Packetizer = p.Packetizer
		if p.Serial != "" {
			cfg.Serial = p.Serial
		}
		return simdevice.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown transport type %q", p.Transport.Type)
	}
}

// deviceSession is one opened device plus everything the commands need
// around it.
type deviceSession struct {
	name     string
	profile  *config.Profile
	registry *config.Registry
	path     string
	events   *events.Manager
	com      *communication.Communication
	logger   *zap.Logger
}

// openDevice resolves --profile, builds its transport and opens it.
func openDevice(opts ...communication.Option) (*deviceSession, error) {
	reg, path, err := loadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	name := profileName
	if name == "" {
		name = reg.DefaultProfile
	}
	if name == "" {
		name = config.SimProfile
	}
	profile, err := reg.Resolve(name)
	if err != nil {
		return nil, err
	}

	t, err := newTransport(profile)
	if err != nil {
		return nil, err
	}

	ds := &deviceSession{
		name:     name,
		profile:  profile,
		registry: reg,
		path:     path,
		events:   events.NewManager(events.DefaultHistory),
		logger:   logging.Named("cli"),
	}

	base := []communication.Option{
		communication.WithPacketizerOptions(profile.Packetizer),
		communication.WithTimestampResolution(profile.TimestampResolution),
		communication.WithReporter(ds.events.Report),
		communication.WithPollingLimit(reg.Preferences.PollingLimit),
		communication.WithLogger(logging.Named("communication").With(zap.String("profile", name))),
	}
	ds.com = communication.New(t, append(base, opts...)...)

	ds.logger.Debug("Opening device",
		zap.String("profile", name),
		zap.String("transport", profile.Transport.String()))
	if err := ds.com.Open(); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", profile.Transport, err)
	}
	return ds, nil
}

// timeout is the request/response wait from the preferences.
func (ds *deviceSession) timeout() time.Duration {
	return ds.registry.Preferences.SyncTimeout()
}

// newSettings returns a settings manager configured from the profile.
func (ds *deviceSession) newSettings() *settings.DeviceSettings {
	opts := []settings.Option{
		settings.WithLogger(logging.Named("settings").With(zap.String("profile", ds.name))),
	}
	if ds.profile.Readonly {
		opts = append(opts, settings.WithReadonly())
	}
	if ds.profile.DisableGSChecksum {
		opts = append(opts, settings.WithoutGSChecksum())
	}
	return settings.New(ds.com, ds.profile.SettingsLayout(), ds.events.Report, opts...)
}

// rememberSerial stores the serial number seen through a saved profile.
// The built-in sim profile and unsaved configurations are left alone.
func (ds *deviceSession) rememberSerial(serial string) {
	if ds.registry.GetProfile(ds.name) == nil {
		return
	}
	if _, err := os.Stat(ds.path); err != nil {
		return
	}
	ds.registry.UpdateProfileLastSeen(ds.name, serial)
	if err := ds.registry.SaveTo(ds.path); err != nil {
		ds.logger.Warn("Failed to record serial number", zap.Error(err))
	}
}

// Close closes the device and logs any events still queued.
func (ds *deviceSession) Close() {
	if err := ds.com.Close(); err != nil {
		ds.logger.Warn("Close failed", zap.Error(err))
	}
	for _, ev := range ds.events.Events() {
		ds.logger.Debug("Device event", zap.Stringer("event", ev))
	}
}
