package models

import "time"

// ScanState is a step of the per-attachment lifecycle.
type ScanState string

const (
	StateInit          ScanState = "init"
	StateKeyDiscovered ScanState = "key_discovered"
	StateKeyAbsent     ScanState = "key_absent"
	StateSubmitted     ScanState = "submitted"
	StateClean         ScanState = "clean"
	StateUnclean       ScanState = "unclean"
	StateFetching      ScanState = "fetching"
	StateResolved      ScanState = "resolved"
	StateRejected      ScanState = "rejected"
	StateFailed        ScanState = "failed"
)

// Terminal reports whether no further transition follows s.
func (s ScanState) Terminal() bool {
	switch s {
	case StateResolved, StateRejected, StateFailed:
		return true
	}
	return false
}

// JournalRecord is one row of the scan journal.
type JournalRecord struct {
	ID         string
	ContentURI string
	Encrypted  bool
	Mode       string
	State      ScanState
	Clean      bool
	Error      string
	// Location is where resolved media was exported, if anywhere.
	Location  string
	CreatedAt time.Time
}
