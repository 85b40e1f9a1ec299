// internal/app/system/status/status.go

// Package status holds the shared status constants used across catalog
// and roster collections.
package status

const (
	Active   = "active"
	Disabled = "disabled"
)
