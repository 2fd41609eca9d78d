package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free jsonl backend
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// RefreshRecord is one row of refresh history.
// Keep it compact and schema-stable.
type RefreshRecord struct {
	At          time.Time `json:"at"`
	Trigger     string    `json:"trigger"` // periodic | manual
	Action      string    `json:"action"`  // playlist | plugin | clear
	Plugin      string    `json:"plugin,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Painted     bool      `json:"painted"`
	TookMS      int64     `json:"took_ms"`
	Error       string    `json:"error,omitempty"`
}
