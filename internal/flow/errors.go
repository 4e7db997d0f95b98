package flow

import "fmt"

// InvalidEventDateError is the recoverable validation error for an event
// date that cannot be parsed or is not in the future. BotMessage carries the
// friendly text shown to the user, distinct from the technical reason.
type InvalidEventDateError struct {
	Reason     string
	BotMessage string
}

func (e *InvalidEventDateError) Error() string {
	return fmt.Sprintf("invalid event date: %s", e.Reason)
}
