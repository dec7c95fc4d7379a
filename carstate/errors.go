package carstate

import "fmt"

// MissingSignalError reports a required signal that was not in the decoded
// set for this tick.
type MissingSignalError struct {
	Message string
	Signal  string
}

func (e *MissingSignalError) Error() string {
	if e.Signal == "" {
		return fmt.Sprintf("missing message %s", e.Message)
	}
	return fmt.Sprintf("missing signal %s.%s", e.Message, e.Signal)
}
