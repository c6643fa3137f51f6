package capture

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("capture writer is closed")

// Writer appends records to a stream. It is safe for concurrent use.
type Writer struct {
	session string
	closer  io.Closer
	now     func() time.Time
	logger  *zap.Logger

	mu      sync.Mutex
	encoder *cbor.Encoder
	seq     uint64
	closed  bool
}

// NewWriter starts a new capture session on w.
func NewWriter(w io.Writer) *Writer {
	cw := &Writer{
		session: uuid.NewString(),
		now:     time.Now,
		logger:  logging.Named("capture"),
		encoder: newEncoder(w),
	}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	return cw
}

// Create opens path for appending, creating it with 0644 if needed.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return NewWriter(f), nil
}

// Session returns the session ID stamped on every record.
func (w *Writer) Session() string {
	return w.session
}

// Count returns the number of records written.
func (w *Writer) Count() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

// Write appends one message.
func (w *Writer) Write(msg *message.Message) error {
	rec := FromMessage(msg)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	rec.Session = w.session
	rec.Seq = w.seq
	rec.Captured = w.now().UTC()
	if err := w.encoder.Encode(rec); err != nil {
		return err
	}
	w.seq++
	return nil
}

// Callback returns a message callback that writes every message it sees.
// Errors are logged, never returned to the dispatcher.
func (w *Writer) Callback() func(*message.Message) {
	return func(msg *message.Message) {
		if err := w.Write(msg); err != nil && !errors.Is(err, ErrClosed) {
			w.logger.Warn("Failed to capture message", zap.Error(err))
		}
	}
}

// Close closes the underlying stream if it is closable. It is safe to call
// Close multiple times.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
