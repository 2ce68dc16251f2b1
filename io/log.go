package io

import (
	"iter"
	"slices"
	"strconv"
)

// Log is an append-only sequence of lines.
type Log struct {
	lines []string
}

var _ Channel = (*Log)(nil)

// Reset empties the log.
func (lg *Log) Reset() {
	lg.lines = nil
}

// Append adds a line to the end of the log.
func (lg *Log) Append(line string) {
	lg.lines = append(lg.lines, line)
}

// Send appends the decimal text of value.
func (lg *Log) Send(value int16) (err error) {
	lg.Append(strconv.Itoa(int(value)))
	return
}

// Len returns the number of lines in the log.
func (lg *Log) Len() int {
	return len(lg.lines)
}

// Lines returns a copy of the log contents.
func (lg *Log) Lines() []string {
	return slices.Clone(lg.lines)
}

// All iterates over the log lines.
func (lg *Log) All() iter.Seq[string] {
	return slices.Values(lg.lines)
}
