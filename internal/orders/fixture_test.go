package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Gulhayo05/Surprise-Bag/internal/notifications"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/dbtest"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	msgs   []notifications.Message
	reject bool
}

func (n *recordingNotifier) Dispatch(ctx context.Context, msg notifications.Message) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return !n.reject
}

func (n *recordingNotifier) byUser(userID uuid.UUID) []notifications.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []notifications.Message{}
	for _, m := range n.msgs {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	conn     *gorm.DB
	repo     Repository
	coord    *Coordinator
	svc      Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T, tweak ...func(*CoordinatorParams)) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.NewFromConn(conn)
	repo := NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)

	params := CoordinatorParams{
		Repo:   repo,
		Tx:     client,
		Outbox: emitter,
		Logger: logger.Nop(),
	}
	for _, fn := range tweak {
		fn(&params)
	}
	coord, err := NewCoordinator(params)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:        repo,
		Tx:          client,
		Outbox:      emitter,
		Coordinator: coord,
		Notifier:    notifier,
		Logger:      logger.Nop(),
	})
	require.NoError(t, err)

	return &fixture{conn: conn, repo: repo, coord: coord, svc: svc, notifier: notifier}
}

// seedBag creates an approved business owner and one active bag.
func (f *fixture) seedBag(t *testing.T, qty int, discount string) (Actor, models.Bag) {
	t.Helper()
	owner := models.User{Email: uuid.NewString() + "@shop.test", Name: "Bakery", Role: enums.UserRoleBusinessOwner}
	require.NoError(t, f.conn.Create(&owner).Error)
	require.NoError(t, f.conn.Create(&models.Business{ID: owner.ID, Name: "Bakery", IsApproved: true}).Error)

	start := time.Now().UTC().Add(time.Hour)
	bag := models.Bag{
		BusinessID:        owner.ID,
		Title:             "Pastry bag",
		OriginalPrice:     decimal.RequireFromString("12.00"),
		DiscountPrice:     decimal.RequireFromString(discount),
		QuantityAvailable: qty,
		PickupStart:       start,
		PickupEnd:         start.Add(2 * time.Hour),
		IsActive:          true,
	}
	require.NoError(t, f.conn.Create(&bag).Error)
	return Actor{UserID: owner.ID, Role: enums.UserRoleBusinessOwner}, bag
}

func (f *fixture) newCustomer(t *testing.T) Actor {
	t.Helper()
	user := models.User{Email: uuid.NewString() + "@mail.test", Name: "Customer", Role: enums.UserRoleCustomer}
	require.NoError(t, f.conn.Create(&user).Error)
	return Actor{UserID: user.ID, Role: enums.UserRoleCustomer}
}

func (f *fixture) reloadBag(t *testing.T, id uuid.UUID) models.Bag {
	t.Helper()
	var bag models.Bag
	require.NoError(t, f.conn.First(&bag, "id = ?", id).Error)
	return bag
}

func (f *fixture) reloadOrder(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", id).Error)
	return order
}

func (f *fixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&n).Error)
	return n
}

func (f *fixture) outboxTypes(t *testing.T) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Order("created_at ASC").Find(&rows).Error)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.EventType)
	}
	return out
}
