// Package projection implements the control-file build cache behind the PDF
// and ZIP named-query projections: a generic asynchronous build-coordination
// protocol keyed by deterministic storage keys.
package projection

import "time"

// ControlFile tracks the build state of one derived artifact. It is stored
// as JSON next to the artifact, at the artifact key plus ".json".
type ControlFile struct {
	Created   time.Time `json:"created"`
	Key       string    `json:"key"`
	Exists    bool      `json:"exists"`
	InProcess bool      `json:"inProcess"`
	ItemCount int       `json:"itemCount"`
	SizeBytes int64     `json:"sizeBytes"`
	Roles     []string  `json:"roles,omitempty"`
}

// Stale reports whether the control file is older than threshold. A stale
// in-process control file is treated as abandoned by a crashed or cancelled
// builder and is eligible for rebuild; this is the cancellation-safety
// mechanism, not an explicit handler.
func (cf *ControlFile) Stale(threshold time.Duration, now time.Time) bool {
	return now.Sub(cf.Created) > threshold
}

// RequiresAuth reports whether serving the artifact needs a role check.
func (cf *ControlFile) RequiresAuth() bool {
	return len(cf.Roles) > 0
}
