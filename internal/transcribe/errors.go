package transcribe

import "fmt"

// UnsupportedFormatError is returned when an upload's extension is not in
// the allow-list. Raised before any model or backend resource is touched.
type UnsupportedFormatError struct {
	Filename string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Filename)
}

// ModelLoadError wraps a failure to load a model. The cache never stores a
// handle when this is returned, so the next Get retries the load.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// BackendExecutionError wraps a decode failure, carrying whatever diagnostic
// output the backend produced (subprocess stderr, helper traceback).
type BackendExecutionError struct {
	Backend string
	Detail  string // captured stderr / diagnostic text
	Err     error
}

func (e *BackendExecutionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v: %s", e.Backend, e.Err, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *BackendExecutionError) Unwrap() error { return e.Err }
