package baseline

import (
	"errors"
	"fmt"
)

// BailoutError reports that one function's compilation was abandoned.
// It is the only recoverable failure this package produces; the caller
// is expected to hand the function to the optimizing tier instead.
type BailoutError struct {
	Reason string
	Op     string // offending operation, empty when not tied to one
}

func (e *BailoutError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("baseline: bailout at %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("baseline: bailout: %s", e.Reason)
}

// IsBailout reports whether err is a bailout.
func IsBailout(err error) bool {
	var be *BailoutError
	return errors.As(err, &be)
}

// Bailout is the fallback controller: a two-state machine, Active until
// the first Trip, then Bailed forever. Every emission path checks it and
// becomes a no-op once tripped, so the driver can finish its linear pass
// and discard the partial output without special-casing call sites.
type Bailout struct {
	err *BailoutError
}

// Trip moves the controller to Bailed. The first reason wins; later
// trips are ignored.
func (b *Bailout) Trip(op, reason string) {
	if b.err != nil {
		return
	}
	b.err = &BailoutError{Reason: reason, Op: op}
}

// Tripf is Trip with a formatted reason.
func (b *Bailout) Tripf(op, format string, args ...any) {
	b.Trip(op, fmt.Sprintf(format, args...))
}

// Bailed reports whether compilation has been abandoned.
func (b *Bailout) Bailed() bool {
	return b.err != nil
}

// Err returns the recorded bailout, or nil while Active.
func (b *Bailout) Err() error {
	if b.err == nil {
		return nil
	}
	return b.err
}
