// Package pump implements the receive pump: it splits a transport
// frame on CR/LF, discards empty segments, and runs each non-empty line
// through the parser and dispatcher in arrival order. It never retains a
// reference to the frame past the call -- every line handed onward is
// already a parser-owned slice of the frame string, and Go's string value
// semantics mean the frame's backing array is only kept alive as long as
// those slices are, not by the pump itself.
package pump

import (
	"log/slog"

	"github.com/haldoran/twitchirc/internal/dispatch"
	"github.com/haldoran/twitchirc/internal/parser"
)

// Pump splits and dispatches transport frames.
type Pump struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// New builds a Pump over dispatcher. logger may be nil (defaults to
// slog.Default()).
func New(dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Pump {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pump{dispatcher: dispatcher, logger: logger}
}

// HandleFrame splits frame into lines on CR/LF and dispatches each one. A
// line that fails to parse is logged and skipped -- never fatal, per the
// error taxonomy's InvalidLine policy.
func (p *Pump) HandleFrame(frame string) {
	for _, line := range splitLines(frame) {
		parsed, err := parser.Parse(line)
		if err != nil {
			p.logger.Warn("pump: dropping unparseable line", "line", line, "error", err)
			continue
		}
		p.dispatcher.Dispatch(parsed)
	}
}

// splitLines splits on the set {CR, LF}, discarding empty segments, without
// using strings.FieldsFunc (which would allocate a closure per call) or
// regexp.
func splitLines(frame string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(frame); i++ {
		if frame[i] == '\r' || frame[i] == '\n' {
			if i > start {
				lines = append(lines, frame[start:i])
			}
			start = i + 1
		}
	}
	if start < len(frame) {
		lines = append(lines, frame[start:])
	}
	return lines
}
