// Package events collects the non-fatal conditions raised by the protocol
// stack.
//
// The packetizer, decoder, communication and settings layers never panic or
// abort on malformed input. Instead they report an event through a Reporter
// and carry on. A Manager stores a bounded history of those events, remembers
// the most recent error, and mirrors each one to the zap logger.
//
//	mgr := events.NewManager(events.DefaultHistory)
//	p := packetizer.New(packetizer.Options{}, mgr.Report)
//	...
//	if ev, ok := mgr.LastError(); ok {
//	    fmt.Println(ev)
//	}
package events
