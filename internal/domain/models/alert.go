package models

import "time"

// Alert is a flagged entity published after a snapshot refresh.
type Alert struct {
	Rule      string    `json:"rule"`
	Entity    string    `json:"entity"`
	Period    string    `json:"period"`
	Metric    string    `json:"metric,omitempty"`
	Severity  int       `json:"severity"`
	Marker    string    `json:"marker"`
	Version   uint64    `json:"snapshot_version"`
	Timestamp time.Time `json:"ts"`
}
