package transport

import (
	"errors"
	"time"
)

// PollInterval bounds every Read.
const PollInterval = 20 * time.Millisecond

const readBufferSize = 4096

var (
	ErrNotOpen     = errors.New("transport is not open")
	ErrAlreadyOpen = errors.New("transport is already open")
)
