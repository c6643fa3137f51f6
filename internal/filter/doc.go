// Package filter selects messages for subscribers and dispatches them.
//
// A MessageFilter matches on Kind, network Type and NetID, each of which may
// be a wildcard. CANFilter and Main51Filter refine it for CAN arbitration IDs
// and command replies. A Callback pairs a Filter with a function, and a
// Registry holds the active callbacks under stable integer ids.
//
//	reg := filter.NewRegistry()
//	id := reg.Add(filter.NewCallback(filter.CANFilter{ArbID: 0x7E8}, func(m *message.Message) {
//	    fmt.Println(m)
//	}))
//	defer reg.Remove(id)
//
// Dispatch copies the callback set under the lock and invokes the copies
// without holding it, so a callback may add or remove callbacks (including
// itself) without deadlocking.
package filter
