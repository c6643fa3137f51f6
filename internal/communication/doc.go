// Package communication runs the link to one device.
//
// A Communication owns a Transport, a Packetizer, an Encoder/Decoder pair and
// a callback Registry. Open starts a single reader goroutine that loops:
//
//	read transport -> packetizer.Input -> decode each packet -> dispatch
//
// Every decoded message is offered to every registered callback, in decode
// order, on the reader goroutine. Outbound traffic (commands and transmitted
// messages) is written on the caller's goroutine; writes are serialized.
//
// # Request/Response
//
// Devices answer commands asynchronously on the same stream as bus traffic.
// WaitForMessageSync correlates a request with its reply by registering a
// one-shot callback before the request is sent, so a fast reply cannot be
// missed:
//
//	msg, err := com.WaitForMessageSync(func() error {
//	    return com.SendCommand(message.CmdRequestSerialNumber)
//	}, filter.NewMain51Filter(message.CmdRequestSerialNumber), time.Second)
//
// The callback is removed on every exit path. A timeout returns ErrTimeout;
// callers must treat it as a failure of the request.
//
// # Polling
//
// EnableMessagePolling buffers every message in a bounded queue for callers
// that prefer to pull. When the queue is full the oldest message is evicted
// and a PollingMessageOverflow event is reported.
package communication
