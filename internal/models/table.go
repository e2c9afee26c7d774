package models

import (
	"encoding/json"
	"time"
)

// ActionRecord is one audit entry as it leaves the process, either to the
// Redis historian queue or to the actions table.
type ActionRecord struct {
	TableID   string         `json:"tableId"`
	Seq       int            `json:"seq"`
	PlayerID  string         `json:"playerId,omitempty"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp int64          `json:"timestamp"` // unix millis
}

// TableDocument is the persisted form of a table. State holds the engine's
// JSON encoding; Version increases with every mutation so a slower save
// never overwrites a newer one.
type TableDocument struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	HostID    string          `json:"hostId"`
	Phase     string          `json:"phase"`
	Version   int64           `json:"version"`
	State     json.RawMessage `json:"state"`
	UpdatedAt time.Time       `json:"updatedAt"`

	// Actions are the audit entries produced since the previous document.
	Actions []ActionRecord `json:"-"`
}
