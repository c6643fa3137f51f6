// Package transport provides byte transports for a device link.
//
// Every transport satisfies communication.Transport: Read blocks for at most
// PollInterval and returns an empty slice when nothing arrived, so the reader
// goroutine can notice a Close promptly.
//
//   - Serial opens a USB CDC or FTDI serial port with go.bug.st/serial.
//   - TCP dials a raw TCP byte stream.
//   - WebSocket dials an icsneo bridge (see package server) and exchanges
//     binary messages with gorilla/websocket.
package transport
