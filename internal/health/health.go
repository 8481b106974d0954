// Package health tracks per-backend liveness and runs the periodic
// background probe.
package health

import "time"

// Record is the health state for one registered backend. Created healthy at
// registration: unknown is assumed usable, not broken. Updated after every
// real generation attempt and by each probe cycle.
type Record struct {
	Name        string        `json:"name"`
	Healthy     bool          `json:"healthy"`
	Latency     time.Duration `json:"latency,omitempty"`
	LastError   string        `json:"lastError,omitempty"`
	LastChecked time.Time     `json:"lastChecked"`
}

// NewRecord returns the optimistic initial record for a backend.
func NewRecord(name string) *Record {
	return &Record{
		Name:        name,
		Healthy:     true,
		LastChecked: time.Now(),
	}
}
