package stats

import (
	"errors"
	"fmt"
)

var (
	// ErrTooSmall matches any TooSmallError via errors.Is.
	ErrTooSmall = errors.New("insufficient samples collected")

	// ErrTooWild indicates pruning left too few samples to trust.
	ErrTooWild = errors.New("samples too wild to analyze")

	// ErrOverflow indicates a numeric invariant was violated while crunching.
	ErrOverflow = errors.New("unable to crunch the numbers")
)

// TooSmallError reports that fewer than the minimum number of samples were
// collected.
type TooSmallError struct {
	Count int
}

func (e *TooSmallError) Error() string {
	return fmt.Sprintf("%s (%d); try increasing the timeout", ErrTooSmall, e.Count)
}

// Is lets errors.Is(err, ErrTooSmall) match.
func (e *TooSmallError) Is(target error) bool {
	return target == ErrTooSmall
}
