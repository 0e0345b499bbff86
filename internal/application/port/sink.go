package port

import "time"

type Sink interface {
	// Block: a multi-line display frame with its render time
	WriteBlock(ts time.Time, block string) error
	// Normal newline (for logs)
	NewLine() error
}
