package contracts

import (
	"errors"
	"fmt"
	"time"
)

// Malformed input errors. A series that fails validation is rejected whole:
// no partial StageRecord sequence is produced.
var (
	ErrEmptySeries       = errors.New("empty series")
	ErrNonMonotonicDates = errors.New("dates are not strictly increasing")
	ErrDuplicateDate     = errors.New("duplicate date")
	ErrNegativeValue     = errors.New("negative price or volume")
	ErrNonFiniteValue    = errors.New("non-finite price or volume")
	ErrInvertedRange     = errors.New("high below low")
	ErrWeightsSum        = errors.New("basket weights do not sum to 1")
	ErrInvalidWeight     = errors.New("member weight must be > 0")
	ErrDuplicateMember   = errors.New("duplicate basket member")
	ErrLengthMismatch    = errors.New("snapshot sequence length mismatch")
)

// SeriesError describes why a series was rejected
type SeriesError struct {
	Kind     SeriesKind
	SeriesID string
	Index    int       // offending bar index, -1 if not applicable
	Date     time.Time // offending date, zero if not applicable
	Err      error
}

func (e *SeriesError) Error() string {
	if e.SeriesID == "" {
		if e.Index >= 0 && !e.Date.IsZero() {
			return fmt.Sprintf("bar %d (%s): %v", e.Index, DateKey(e.Date), e.Err)
		}
		return e.Err.Error()
	}
	if e.Index >= 0 && !e.Date.IsZero() {
		return fmt.Sprintf("%s %s: bar %d (%s): %v", e.Kind, e.SeriesID, e.Index, DateKey(e.Date), e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.SeriesID, e.Err)
}

func (e *SeriesError) Unwrap() error {
	return e.Err
}
