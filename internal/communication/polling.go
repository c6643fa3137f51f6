package communication

import (
	"github.com/intrepidcs/libicsneo-sub002/internal/events"
	"github.com/intrepidcs/libicsneo-sub002/internal/filter"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
)

// EnableMessagePolling starts buffering every decoded message. A limit of
// zero or less keeps the configured default. Calling it again only updates
// the limit.
func (c *Communication) EnableMessagePolling(limit int) {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	if limit > 0 {
		c.pollLimit = limit
	}
	c.trimPollQueueLocked()
	if c.polling {
		return
	}
	c.polling = true
	c.pollCallback = c.callbacks.Add(filter.NewCallback(filter.Any(), c.enqueue))
}

// DisableMessagePolling stops buffering and drops queued messages.
func (c *Communication) DisableMessagePolling() {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	if !c.polling {
		return
	}
	c.callbacks.Remove(c.pollCallback)
	c.polling = false
	c.pollQueue = nil
	c.metrics.PollingDepth(0)
}

// IsMessagePollingEnabled reports whether messages are being buffered.
func (c *Communication) IsMessagePollingEnabled() bool {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	return c.polling
}

// GetMessages removes and returns up to max queued messages, oldest first.
// max <= 0 drains the queue.
func (c *Communication) GetMessages(max int) []*message.Message {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()

	n := len(c.pollQueue)
	if max > 0 && max < n {
		n = max
	}
	out := make([]*message.Message, n)
	copy(out, c.pollQueue[:n])
	c.pollQueue = append(c.pollQueue[:0], c.pollQueue[n:]...)
	c.metrics.PollingDepth(len(c.pollQueue))
	return out
}

// PollingCount returns the number of queued messages.
func (c *Communication) PollingCount() int {
	c.pollMu.Lock()
	defer c.pollMu.Unlock()
	return len(c.pollQueue)
}

func (c *Communication) enqueue(msg *message.Message) {
	c.pollMu.Lock()
	if !c.polling {
		c.pollMu.Unlock()
		return
	}
	c.pollQueue = append(c.pollQueue, msg)
	overflow := c.trimPollQueueLocked()
	c.metrics.PollingDepth(len(c.pollQueue))
	c.pollMu.Unlock()

	if overflow {
		c.report(events.PollingMessageOverflow, events.Warning)
	}
}

func (c *Communication) trimPollQueueLocked() bool {
	excess := len(c.pollQueue) - c.pollLimit
	if excess <= 0 {
		return false
	}
	c.pollQueue = append(c.pollQueue[:0], c.pollQueue[excess:]...)
	return true
}
