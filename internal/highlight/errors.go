package highlight

import (
	"errors"
	"fmt"
)

// ErrInvalidBlock is returned by Document implementations for handles or
// offsets that do not name a block.
var ErrInvalidBlock = errors.New("invalid block")

// PatternError reports a rule pattern that failed to compile.
type PatternError struct {
	Category Category
	Pattern  string
	Err      error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("compiling %s pattern %q: %v", e.Category, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}
