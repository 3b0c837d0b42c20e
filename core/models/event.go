package models

import "time"

// RunEvent represents a state transition event for a deployment run
type RunEvent struct {
	ID         int64
	RunID      string
	At         time.Time
	FromStatus *RunStatus
	ToStatus   RunStatus
	Reason     string
	MetaJSON   map[string]interface{} // Additional metadata
}
