package structured

import (
	"errors"
	"fmt"
)

// ErrGenerationFailed matches every *GenerationFailedError.
var ErrGenerationFailed = errors.New("structured generation failed")

// GenerationFailedError reports that no attempt produced a usable object.
// Last is the final underlying cause and stays reachable through Unwrap.
type GenerationFailedError struct {
	Attempts int
	Last     error
}

func (e *GenerationFailedError) Error() string {
	msg := "unknown error"
	if e.Last != nil {
		msg = e.Last.Error()
	}
	return fmt.Sprintf("structured AI generation failed after %d attempts: %s", e.Attempts, msg)
}

func (e *GenerationFailedError) Unwrap() error { return e.Last }

func (e *GenerationFailedError) Is(target error) bool { return target == ErrGenerationFailed }

// ParseError is an attempt whose text was not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "failed to parse AI response as JSON: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }
