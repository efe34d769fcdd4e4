package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"runpay/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActivityEvent is one activity log entry as it travels to the export worker.
type ActivityEvent struct {
	EntryID     uuid.UUID       `json:"entry_id"`
	Time        time.Time       `json:"time"`
	Kind        core.Kind       `json:"kind"`
	Status      core.Status     `json:"status"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	From        core.AccountID  `json:"from,omitempty"`
	To          core.AccountID  `json:"to,omitempty"`
	Percent     int             `json:"percent,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	PublishedAt time.Time       `json:"published_at"`
}

func NewActivityEvent(e core.LogEntry) *ActivityEvent {
	return &ActivityEvent{
		EntryID:     e.ID,
		Time:        e.Time,
		Kind:        e.Kind,
		Status:      e.Status,
		Description: e.Description,
		Amount:      e.Amount,
		From:        e.From,
		To:          e.To,
		Percent:     e.Percent,
		Reason:      e.Reason,
		PublishedAt: time.Now().UTC(),
	}
}

func (m *ActivityEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityEventFromJSON decodes an event and rejects ones without an entry id.
func ActivityEventFromJSON(data []byte) (*ActivityEvent, error) {
	var msg ActivityEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EntryID == uuid.Nil {
		return nil, errors.New("activity event without entry id")
	}
	return &msg, nil
}
