package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kinds of closed period.
const (
	KindDay   = "day"
	KindMonth = "month"
)

var ErrInvalidMessage = errors.New("invalid period closed message")

// PeriodClosedMessage announces that a day or month of one user's ledger
// was closed. Consumers read the archive or report itself from the store.
type PeriodClosedMessage struct {
	User             string    `json:"user"`
	Kind             string    `json:"kind"`
	Period           string    `json:"period"`
	TransactionCount int       `json:"transactionCount"`
	Timestamp        time.Time `json:"timestamp"`
}

func NewPeriodClosedMessage(user, kind, period string, transactionCount int) *PeriodClosedMessage {
	return &PeriodClosedMessage{
		User:             user,
		Kind:             kind,
		Period:           period,
		TransactionCount: transactionCount,
		Timestamp:        time.Now().UTC(),
	}
}

func (m *PeriodClosedMessage) Validate() error {
	if m.User == "" {
		return fmt.Errorf("%w: missing user", ErrInvalidMessage)
	}
	if m.Kind != KindDay && m.Kind != KindMonth {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidMessage, m.Kind)
	}
	if m.Period == "" {
		return fmt.Errorf("%w: missing period", ErrInvalidMessage)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *PeriodClosedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PeriodClosedMessageFromJSON decodes and validates a message body.
func PeriodClosedMessageFromJSON(data []byte) (*PeriodClosedMessage, error) {
	var msg PeriodClosedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
