package render

import (
	"errors"
	"fmt"
)

// ErrEmptyCollection is returned when a viewport is requested for a collection without features.
var ErrEmptyCollection = errors.New("feature collection is empty")

// InvalidStyleError indicates a style option outside its accepted range.
type InvalidStyleError struct {
	Field  string
	Reason string
}

func (e *InvalidStyleError) Error() string {
	return fmt.Sprintf("invalid style option %s: %s", e.Field, e.Reason)
}
