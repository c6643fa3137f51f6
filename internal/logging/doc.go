// Package logging provides structured logging for the icsneo protocol stack.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the stack. Library packages take a named child
// logger at construction time; the CLI initializes the root logger once.
//
// # Log Levels
//
//   - Debug: Raw transport bytes, framed packets, decoded messages
//   - Info: Transport open/close, settings refresh and apply outcomes
//   - Warn: Resynchronization, checksum failures, polling overflow
//   - Error: Transport failures, settings protocol errors
//
// # Configuration
//
// Logging is silent unless a level is requested, either explicitly or via the
// ICSNEO_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// ICSNEO_LOG_FORMAT=json switches to the JSON encoder.
//
// # Specialized Logging
//
//	logging.LogTransport("serial:/dev/ttyACM0", "opened")
//	logging.LogRawBytes("rx", buf)
//	logging.LogPacket("framed", netid.String(), payload)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
