package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message kinds carried on the sync queue.
const (
	KindSync   = "sync"
	KindDelete = "delete"
)

// SyncMessage tells the worker that a transaction changed. It carries only
// the receipt id and a kind; the worker fetches the full record from the
// database for appends, and deletes by id for removals.
type SyncMessage struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncMessage(id string) *SyncMessage {
	return &SyncMessage{Kind: KindSync, ID: id, Timestamp: time.Now()}
}

func NewDeleteMessage(id string) *SyncMessage {
	return &SyncMessage{Kind: KindDelete, ID: id, Timestamp: time.Now()}
}

func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindSync, KindDelete:
	default:
		return nil, fmt.Errorf("unknown message kind %q", msg.Kind)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message without transaction id")
	}
	return &msg, nil
}
