package models

import "time"

// DeadlineStatus reports whether a weekly-review submission is currently permitted.
// IsOverride marks an admin writing past the cutoff; the calling UI must
// surface an explicit confirmation step before accepting such a write.
type DeadlineStatus struct {
	Open       bool      `json:"open"`
	Allowed    bool      `json:"allowed"`
	IsOverride bool      `json:"is_override"`
	Deadline   time.Time `json:"deadline"`
}
