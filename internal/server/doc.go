// Package server implements the icsneo network bridge.
//
// A bridge owns one locally attached device (serial port or simulator) and
// shares its raw byte stream with a single remote host over WebSocket. The
// remote side runs the full host stack (packetizer, decoder, settings) on
// top of a transport.WebSocket, so the bridge never interprets traffic.
//
// # Endpoints
//
//	GET /device   WebSocket upgrade; binary messages carry device bytes
//	GET /status   JSON bridge status
//	GET /metrics  Prometheus metrics, when a handler is configured
//
// Only one client may hold the device at a time. A second upgrade request
// gets 409 Conflict until the first session ends.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{
//	    Port:      8765,
//	    Serial:    "AB1234",
//	    Advertise: true,
//	}, transport.NewSerial("/dev/ttyACM0", 0))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Start blocks until shutdown signal or error
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # TLS
//
// When CertPath and KeyPath are set the bridge serves wss:// with TLS 1.2
// as the minimum version.
//
// # Graceful Shutdown
//
// The server handles SIGINT and SIGTERM signals for graceful shutdown:
//  1. Withdraw the mDNS advertisement
//  2. Stop accepting new connections
//  3. Close the active session and release the device
package server
