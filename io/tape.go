package io

import (
	"fmt"
	"io"
	"strconv"
)

// Tape writes each value as a line of text to an io.Writer.
type Tape struct {
	Output io.Writer
	Format func(value int16) string // Defaults to decimal.
}

var _ Channel = (*Tape)(nil)

// Send writes a formatted value followed by a newline.
func (tc *Tape) Send(value int16) (err error) {
	var text string
	if tc.Format != nil {
		text = tc.Format(value)
	} else {
		text = strconv.Itoa(int(value))
	}

	_, err = fmt.Fprintln(tc.Output, text)
	return
}

// Tee sends every value to each of its channels.
type Tee []Channel

var _ Channel = (Tee)(nil)

// Send delivers value to all channels, stopping at the first error.
func (tee Tee) Send(value int16) (err error) {
	for _, ch := range tee {
		if ch == nil {
			continue
		}
		err = ch.Send(value)
		if err != nil {
			return
		}
	}
	return
}
