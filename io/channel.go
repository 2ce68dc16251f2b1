// Package io provides OUT channel implementations for the MicroASM emulator.
// It includes an append-only in-memory log (Log), a line-oriented writer
// (Tape), and a fan-out (Tee).
package io

// Channel receives the values produced by OUT instructions.
type Channel interface {
	// Send delivers a single value to the channel.
	Send(value int16) error
}
