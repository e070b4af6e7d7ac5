package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action tells the sheets worker what to do with a meal.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// MealSyncMessage announces a change to one meal. It carries only the id
// and version; the worker reads the current row from the database.
type MealSyncMessage struct {
	MessageID string    `json:"message_id"`
	Action    Action    `json:"action"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMealSyncMessage(action Action, id, version int64) *MealSyncMessage {
	return &MealSyncMessage{
		MessageID: uuid.NewString(),
		Action:    action,
		ID:        id,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

func (m *MealSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MealSyncMessageFromJSON decodes and validates a message body.
func MealSyncMessageFromJSON(data []byte) (*MealSyncMessage, error) {
	var msg MealSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid meal id %d", msg.ID)
	}
	switch msg.Action {
	case ActionUpsert, ActionDelete:
	case "":
		msg.Action = ActionUpsert
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	return &msg, nil
}
