// Package chat implements room lifecycle, the membership state machine, and
// messaging with read tracking on top of injected stores.
//
// Every mutating operation validates against the stores, writes, and then
// hands the resulting view to the Notifier. Notification is fire-and-forget:
// it runs after the write and can never undo it.
package chat

import (
	"context"
	"time"

	"github.com/dalemusser/roomhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RoomStore persists room documents.
type RoomStore interface {
	Create(ctx context.Context, r models.Room) (models.Room, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Room, error)
	Update(ctx context.Context, id primitive.ObjectID, p models.RoomPatch) (models.Room, error)
	Query(ctx context.Context, f models.RoomFilter) ([]models.Room, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Room, error)
}

// MembershipStore persists memberships. Admit and Deactivate are atomic with
// respect to the room's active member count.
type MembershipStore interface {
	CreateMany(ctx context.Context, roomID primitive.ObjectID, userIDs []primitive.ObjectID) ([]models.Membership, error)
	Get(ctx context.Context, roomID, userID primitive.ObjectID) (models.Membership, error)
	Admit(ctx context.Context, roomID, userID primitive.ObjectID, reactivate bool) (models.Membership, error)
	Deactivate(ctx context.Context, roomID, userID primitive.ObjectID) (models.Membership, error)
	AdvanceReadCursor(ctx context.Context, roomID, userID primitive.ObjectID, at time.Time) (time.Time, error)
	ListActiveByRoom(ctx context.Context, roomID primitive.ObjectID) ([]models.Membership, error)
	ListActiveByRooms(ctx context.Context, roomIDs []primitive.ObjectID) (map[primitive.ObjectID][]models.Membership, error)
	ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error)
}

// MessageStore persists messages. Create assigns the ID and created_at.
type MessageStore interface {
	Create(ctx context.Context, m models.Message) (models.Message, error)
	Count(ctx context.Context, roomID primitive.ObjectID) (int64, error)
	CountAfter(ctx context.Context, roomID primitive.ObjectID, t time.Time) (int64, error)
	List(ctx context.Context, roomID primitive.ObjectID, f models.MessageFilter) ([]models.Message, error)
}

// ReportStore records room reports.
type ReportStore interface {
	Create(ctx context.Context, r models.RoomReport) (models.RoomReport, error)
}

// UserDirectory resolves user profiles owned by the identity service.
type UserDirectory interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
}

// Transactor runs fn as one unit of work.
type Transactor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier receives post-commit events. Implementations must not block for
// long and report their own failures.
type Notifier interface {
	NotifyNewRoom(ctx context.Context, room RoomView)
	NotifyRoomUpdate(ctx context.Context, room RoomView)
	NotifyNewMember(ctx context.Context, member MemberView)
	NotifyRoomMemberLeft(ctx context.Context, member MemberView)
	NotifyNewMessage(ctx context.Context, msg MessageView)
}

// Config holds the tunables for message paging.
type Config struct {
	MessagePageDefault int
	MessagePageMax     int
}

const (
	defaultMessagePage = 10
	defaultMessageMax  = 100
)

// Deps bundles the collaborators of a Service.
type Deps struct {
	Rooms       RoomStore
	Memberships MembershipStore
	Messages    MessageStore
	Reports     ReportStore
	Users       UserDirectory
	Tx          Transactor
	Notifier    Notifier
	Logger      *zap.Logger
	Config      Config
}

// Service is safe for concurrent use; all shared state lives in the stores.
type Service struct {
	rooms    RoomStore
	members  MembershipStore
	messages MessageStore
	reports  ReportStore
	users    UserDirectory
	tx       Transactor
	notify   Notifier
	log      *zap.Logger
	cfg      Config
}

// New builds a Service. A nil Notifier or Transactor is replaced by a no-op.
func New(d Deps) *Service {
	s := &Service{
		rooms:    d.Rooms,
		members:  d.Memberships,
		messages: d.Messages,
		reports:  d.Reports,
		users:    d.Users,
		tx:       d.Tx,
		notify:   d.Notifier,
		log:      d.Logger,
		cfg:      d.Config,
	}
	if s.tx == nil {
		s.tx = directTx{}
	}
	if s.notify == nil {
		s.notify = NopNotifier{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.cfg.MessagePageDefault <= 0 {
		s.cfg.MessagePageDefault = defaultMessagePage
	}
	if s.cfg.MessagePageMax <= 0 {
		s.cfg.MessagePageMax = defaultMessageMax
	}
	if s.cfg.MessagePageDefault > s.cfg.MessagePageMax {
		s.cfg.MessagePageDefault = s.cfg.MessagePageMax
	}
	return s
}

type directTx struct{}

func (directTx) Run(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) NotifyNewRoom(context.Context, RoomView)          {}
func (NopNotifier) NotifyRoomUpdate(context.Context, RoomView)       {}
func (NopNotifier) NotifyNewMember(context.Context, MemberView)      {}
func (NopNotifier) NotifyRoomMemberLeft(context.Context, MemberView) {}
func (NopNotifier) NotifyNewMessage(context.Context, MessageView)    {}
