package amqp

import (
	"encoding/json"
	"time"

	"expresso/internal/ledger"
)

// LedgerEventMessage is the body published for each ledger mutation. It
// carries ids only; consumers read current state from the ledger.
type LedgerEventMessage struct {
	Type      string    `json:"type"`
	OwnerID   int64     `json:"clienteId"`
	EntityID  int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(e ledger.Event) *LedgerEventMessage {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &LedgerEventMessage{
		Type:      e.Type,
		OwnerID:   e.OwnerID,
		EntityID:  e.EntityID,
		Timestamp: ts,
	}
}

func (m *LedgerEventMessage) Event() ledger.Event {
	return ledger.Event{Type: m.Type, OwnerID: m.OwnerID, EntityID: m.EntityID, Timestamp: m.Timestamp}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
