package port

import "time"

// Sink receives rendered board lines.
type Sink interface {
	// WriteLive overwrites the current live line (no newline).
	WriteLive(line string) error
	// WriteSnapshot appends a timestamped line and leaves an empty line for the next live update.
	WriteSnapshot(ts time.Time, line string) error
	NewLine() error
}
