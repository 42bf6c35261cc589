package hh

import "fmt"

// StatusError reports a non-2xx upstream response. It is fatal to the fetch
// call that observed it and is never retried; the status code and response
// body are preserved for the caller.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}
