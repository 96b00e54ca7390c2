package ai

import "fmt"

// ErrUnavailable indicates the capability is down, unreachable or timed out.
type ErrUnavailable struct {
	Err error
}

func (e *ErrUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capability unavailable: %v", e.Err)
	}
	return "capability unavailable"
}

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// ErrEmptyResponse indicates the capability answered with no content.
type ErrEmptyResponse struct{}

func (e *ErrEmptyResponse) Error() string { return "capability returned no content" }
