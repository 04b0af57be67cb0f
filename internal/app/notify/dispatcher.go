package notify

import (
	"context"
	"encoding/json"

	"github.com/dalemusser/roomhub/internal/app/chat"
	"github.com/dalemusser/roomhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Hub is the part of the realtime hub the dispatcher drives.
type Hub interface {
	Subscribe(userID, roomID string)
	Unsubscribe(userID, roomID string)
	Broadcast(roomID string, payload []byte) int
	SendToUser(userID string, payload []byte) int
}

// Publisher forwards events to an external bus.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Dispatcher implements chat.Notifier.
type Dispatcher struct {
	hub Hub
	pub Publisher
	log *zap.Logger
}

var _ chat.Notifier = (*Dispatcher)(nil)

// NewDispatcher builds a Dispatcher. hub and pub may be nil.
func NewDispatcher(hub Hub, pub Publisher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{hub: hub, pub: pub, log: logger}
}

// NotifyNewRoom subscribes every initial member and announces the room.
func (d *Dispatcher) NotifyNewRoom(ctx context.Context, room chat.RoomView) {
	roomID := room.ID.Hex()
	if d.hub != nil {
		for _, id := range room.MemberUserIDs() {
			d.hub.Subscribe(id.Hex(), roomID)
		}
	}
	d.emit(ctx, newEvent(TypeRoomCreated, roomID, room))
}

func (d *Dispatcher) NotifyRoomUpdate(ctx context.Context, room chat.RoomView) {
	d.emit(ctx, newEvent(TypeRoomUpdated, room.ID.Hex(), room))
}

// NotifyNewMember subscribes the member first so they see their own arrival.
func (d *Dispatcher) NotifyNewMember(ctx context.Context, member chat.MemberView) {
	roomID := member.RoomID.Hex()
	if d.hub != nil {
		d.hub.Subscribe(member.UserID.Hex(), roomID)
	}
	d.emit(ctx, newEvent(TypeMemberAdded, roomID, member))
}

// NotifyRoomMemberLeft drops the departing user from the room before
// announcing the departure, so no later room traffic reaches them. They get
// the member_left notice on their own connections instead.
func (d *Dispatcher) NotifyRoomMemberLeft(ctx context.Context, member chat.MemberView) {
	roomID := member.RoomID.Hex()
	userID := member.UserID.Hex()
	if d.hub != nil {
		d.hub.Unsubscribe(userID, roomID)
	}
	ev := newEvent(TypeMemberLeft, roomID, member)
	payload := d.emit(ctx, ev)
	if d.hub != nil && payload != nil {
		n := d.hub.SendToUser(userID, payload)
		d.log.Debug("departure sent to member",
			zap.String("room_id", roomID),
			zap.String("user_id", userID),
			zap.Int("connections", n))
	}
}

func (d *Dispatcher) NotifyNewMessage(ctx context.Context, msg chat.MessageView) {
	d.emit(ctx, newEvent(TypeMessageCreated, msg.RoomID.Hex(), msg))
}

// emit broadcasts ev to the room and publishes it. It returns the encoded
// frame, or nil when there is no hub or encoding failed.
func (d *Dispatcher) emit(ctx context.Context, ev Event) []byte {
	var payload []byte
	if d.hub != nil {
		b, err := json.Marshal(ev)
		if err != nil {
			d.log.Warn("encode event failed",
				zap.String("event", ev.Type),
				zap.String("room_id", ev.RoomID),
				zap.Error(err))
		} else {
			payload = b
			n := d.hub.Broadcast(ev.RoomID, payload)
			d.log.Debug("event broadcast",
				zap.String("event", ev.Type),
				zap.String("room_id", ev.RoomID),
				zap.Int("connections", n))
		}
	}

	if d.pub == nil {
		return payload
	}
	// the request may already be finishing; the publish gets its own deadline
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()
	if err := d.pub.Publish(pctx, ev); err != nil {
		d.log.Warn("publish event failed",
			zap.String("event", ev.Type),
			zap.String("room_id", ev.RoomID),
			zap.Error(err))
	}
	return payload
}
