package dataset

import "fmt"

// InputError reports a file that cannot become a usable dataset.
type InputError struct {
	Name   string
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	msg := e.Reason
	if e.Name != "" {
		msg = fmt.Sprintf("%s: %s", e.Name, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", msg, e.Err)
	}
	return "invalid input: " + msg
}

func (e *InputError) Unwrap() error { return e.Err }

func inputErr(name, reason string, err error) error {
	return &InputError{Name: name, Reason: reason, Err: err}
}
