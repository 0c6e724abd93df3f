package amqp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"tracker/internal/core"
)

// RecordCreatedMessage announces a row written through the API. It carries
// the full stored row so consumers never read the backend back.
type RecordCreatedMessage struct {
	Table     string      `json:"table"`
	ID        string      `json:"id"`
	Record    core.Record `json:"record"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewRecordCreatedMessage creates a message stamped with the current time.
func NewRecordCreatedMessage(table, id string, record core.Record) *RecordCreatedMessage {
	return &RecordCreatedMessage{
		Table:     table,
		ID:        id,
		Record:    record,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordCreatedMessageFromJSON decodes a message keeping numbers as
// json.Number so amounts survive exactly.
func RecordCreatedMessageFromJSON(data []byte) (*RecordCreatedMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var msg RecordCreatedMessage
	if err := dec.Decode(&msg); err != nil {
		return nil, err
	}
	if msg.Table == "" {
		return nil, fmt.Errorf("message has no table")
	}
	return &msg, nil
}
