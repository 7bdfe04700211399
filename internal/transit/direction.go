// Package transit resolves arrival times and terminal destinations for a
// single station from an immutable topology snapshot and a live feed snapshot.
//
// Every exported operation is a pure function of its arguments. Nothing in
// this package reads the wall clock, performs I/O, or mutates its inputs, so
// all functions are safe for concurrent use as long as callers publish
// snapshots immutably.
package transit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrContractViolation signals a caller programming error or a topology
// data-integrity defect. Routine feed sparsity never produces it.
var ErrContractViolation = errors.New("transit: contract violation")

func contractViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...))
}

// Direction is a logical travel direction along a line.
type Direction string

const (
	South Direction = "south"
	North Direction = "north"
)

// Directions lists the valid directions in display order.
var Directions = []Direction{South, North}

// ParseDirection accepts "south"/"north" (any case) or the token suffixes "S"/"N".
func ParseDirection(s string) (Direction, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "south", "s":
		return South, nil
	case "north", "n":
		return North, nil
	}
	return "", contractViolation("invalid direction %q", s)
}

func (d Direction) Valid() bool {
	return d == South || d == North
}

// Opposite returns the reverse direction. Invalid directions map to "".
func (d Direction) Opposite() Direction {
	switch d {
	case South:
		return North
	case North:
		return South
	}
	return ""
}

// Suffix returns the single-character suffix used in directed stop tokens.
func (d Direction) Suffix() string {
	switch d {
	case South:
		return "S"
	case North:
		return "N"
	}
	return ""
}

func (d Direction) validate() error {
	if !d.Valid() {
		return contractViolation("invalid direction %q", string(d))
	}
	return nil
}
