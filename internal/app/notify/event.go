// Package notify turns committed chat changes into events. Events go to the
// local websocket hub and, when configured, to a Redis channel for other
// consumers. Delivery is best effort: failures are logged, never returned.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeRoomCreated    = "room_created"
	TypeRoomUpdated    = "room_updated"
	TypeMemberAdded    = "member_added"
	TypeMemberLeft     = "member_left"
	TypeMessageCreated = "message_created"
)

// Event is the envelope written to websockets and Redis.
type Event struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	RoomID string    `json:"room_id"`
	Data   any       `json:"data"`
	At     time.Time `json:"at"`
}

func newEvent(typ, roomID string, data any) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   typ,
		RoomID: roomID,
		Data:   data,
		At:     time.Now().UTC(),
	}
}
