package amqp

import (
	"encoding/json"
	"time"
)

// RecordKind names the collection a sync message refers to. Only expenses
// are mirrored today; the kind field keeps the wire format open for more.
type RecordKind string

const KindExpense RecordKind = "expense"

// RecordSyncMessage asks the sync worker to mirror one record. It carries
// only the identity and version; the worker fetches the current row from
// the database, so a burst of updates collapses into one write.
type RecordSyncMessage struct {
	Kind      RecordKind `json:"kind"`
	ID        int64      `json:"id"`
	Version   int64      `json:"version"`
	Deleted   bool       `json:"deleted,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewRecordSyncMessage(kind RecordKind, id, version int64) *RecordSyncMessage {
	return &RecordSyncMessage{
		Kind:      kind,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewRecordDeleteMessage(kind RecordKind, id int64) *RecordSyncMessage {
	return &RecordSyncMessage{
		Kind:      kind,
		ID:        id,
		Deleted:   true,
		Timestamp: time.Now(),
	}
}

func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
