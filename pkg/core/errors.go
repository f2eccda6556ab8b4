package core

import "fmt"

// ConfigurationError reports a command source that cannot run a fill:
// it is not asynchronous-capable, has no connection, or cannot be opened.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fill configuration: %s: %v", e.Reason, e.Err)
	}
	return "fill configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// FetchError reports a failure while materializing a page.
type FetchError struct {
	// Page is the zero-based index of the page that failed.
	Page int
	// Offset is the record offset the page started at.
	Offset int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d at record %d: %v", e.Page, e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
