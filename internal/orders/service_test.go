package orders

import (
	"context"
	"testing"

	"github.com/Gulhayo05/Surprise-Bag/pkg/db/models"
	"github.com/Gulhayo05/Surprise-Bag/pkg/enums"
	pkgerrors "github.com/Gulhayo05/Surprise-Bag/pkg/errors"
	"github.com/Gulhayo05/Surprise-Bag/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelPendingOrderRestoresAvailability(t *testing.T) {
	f := newFixture(t)
	owner, bag := f.seedBag(t, 5, "4.00")
	customer := f.newCustomer(t)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, customer, PlaceInput{BagID: bag.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, f.reloadBag(t, bag.ID).QuantityAvailable)

	cancelled, err := f.svc.Cancel(ctx, customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	stored := f.reloadBag(t, bag.ID)
	assert.Equal(t, 5, stored.QuantityAvailable)
	assert.Equal(t, 2, stored.QuantitySold)

	_, err = f.svc.Cancel(ctx, owner, order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)
	assert.Equal(t, 5, f.reloadBag(t, bag.ID).QuantityAvailable)

	assert.ElementsMatch(t,
		[]enums.OutboxEventType{enums.EventOrderPlaced, enums.EventOrderCancelled},
		f.outboxTypes(t))
}

func TestCompletedOrderLifecycleAndRating(t *testing.T) {
	f := newFixture(t)
	owner, bag := f.seedBag(t, 3, "5.00")
	customer := f.newCustomer(t)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, customer, PlaceInput{BagID: bag.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.Rate(ctx, customer, order.ID, RateInput{Rating: 4})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidState), "pending rate: %v", err)

	confirmed, err := f.svc.Confirm(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, confirmed.Status)

	completed, err := f.svc.Complete(ctx, owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, completed.Status)

	_, err = f.svc.Confirm(ctx, owner, order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition), "confirm completed: %v", err)

	_, err = f.svc.Cancel(ctx, owner, order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition), "cancel completed: %v", err)
	stored := f.reloadBag(t, bag.ID)
	assert.Equal(t, 2, stored.QuantityAvailable)
	assert.Equal(t, 1, stored.QuantitySold)

	feedback := "Great pastries"
	rated, err := f.svc.Rate(ctx, customer, order.ID, RateInput{Rating: 4, Feedback: &feedback})
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 4, *rated.Rating)

	_, err = f.svc.Rate(ctx, customer, order.ID, RateInput{Rating: 5})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidState), "re-rate: %v", err)
	persisted := f.reloadOrder(t, order.ID)
	require.NotNil(t, persisted.Rating)
	assert.Equal(t, 4, *persisted.Rating)
	require.NotNil(t, persisted.Feedback)
	assert.Equal(t, feedback, *persisted.Feedback)

	assert.ElementsMatch(t, []enums.OutboxEventType{
		enums.EventOrderPlaced,
		enums.EventOrderConfirmed,
		enums.EventOrderCompleted,
		enums.EventOrderRated,
	}, f.outboxTypes(t))
}

func TestRateValidatesRangeAndOwnership(t *testing.T) {
	f := newFixture(t)
	owner, bag := f.seedBag(t, 3, "5.00")
	customer := f.newCustomer(t)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, customer, PlaceInput{BagID: bag.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, owner, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, owner, order.ID)
	require.NoError(t, err)

	for _, rating := range []int{0, 6, -3} {
		_, err := f.svc.Rate(ctx, customer, order.ID, RateInput{Rating: rating})
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "rating %d: %v", rating, err)
	}

	_, err = f.svc.Rate(ctx, f.newCustomer(t), order.ID, RateInput{Rating: 3})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.Rate(ctx, owner, order.ID, RateInput{Rating: 3})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	assert.Nil(t, f.reloadOrder(t, order.ID).Rating)
}

func TestPlaceSnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	_, bag := f.seedBag(t, 5, "3.25")
	customer := f.newCustomer(t)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, customer, PlaceInput{BagID: bag.ID, Quantity: 3})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("9.75").Equal(order.TotalPrice))

	require.NoError(t, f.conn.Model(&models.Bag{}).Where("id = ?", bag.ID).
		Update("discount_price", decimal.RequireFromString("1.00")).Error)

	stored := f.reloadOrder(t, order.ID)
	assert.True(t, decimal.RequireFromString("9.75").Equal(stored.TotalPrice), "total %s", stored.TotalPrice)
}

func TestPlaceRejectsNonCustomers(t *testing.T) {
	f := newFixture(t)
	owner, bag := f.seedBag(t, 5, "3.00")
	ctx := context.Background()

	_, err := f.svc.Place(ctx, owner, PlaceInput{BagID: bag.ID, Quantity: 1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.Place(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, PlaceInput{BagID: bag.ID, Quantity: 1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	assert.Equal(t, 5, f.reloadBag(t, bag.ID).QuantityAvailable)
}

func TestTransitionsCheckOwnership(t *testing.T) {
	f := newFixture(t)
	_, bag := f.seedBag(t, 5, "3.00")
	otherOwner, _ := f.seedBag(t, 1, "3.00")
	customer := f.newCustomer(t)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, customer, PlaceInput{BagID: bag.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, otherOwner, order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.Confirm(ctx, customer, order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.Cancel(ctx, f.newCustomer(t), order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.Cancel(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))

	assert.Equal(t, enums.OrderStatusPending, f.reloadOrder(t, order.ID).Status)
	assert.Equal(t, 4, f.reloadBag(t, bag.ID).QuantityAvailable)

	_, err = f.svc.Confirm(ctx, otherOwner, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestOwnerCancelOfConfirmedOrder(t *testing.T) {
	f := newFixture(t)
	owner, bag := f.seedBag(t, 4, "3.00")
	customer := f.newCustomer(t)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, customer, PlaceInput{BagID: bag.ID, Quantity: 3})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, owner, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, owner, order.ID)
	require.NoError(t, err)

	stored := f.reloadBag(t, bag.ID)
	assert.Equal(t, 4, stored.QuantityAvailable)
	assert.Equal(t, 3, stored.QuantitySold)

	msgs := f.notifier.byUser(customer.UserID)
	require.Len(t, msgs, 3)
	assert.Equal(t, enums.NotificationTypeOrderUpdate, msgs[2].Type)
	assert.Equal(t, "Order cancelled", msgs[2].Title)
}

func TestNotificationsFollowLifecycle(t *testing.T) {
	f := newFixture(t)
	owner, bag := f.seedBag(t, 4, "3.00")
	customer := f.newCustomer(t)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, customer, PlaceInput{BagID: bag.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, owner, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, owner, order.ID)
	require.NoError(t, err)
	_, err = f.svc.Rate(ctx, customer, order.ID, RateInput{Rating: 5})
	require.NoError(t, err)

	customerMsgs := f.notifier.byUser(customer.UserID)
	require.Len(t, customerMsgs, 3)
	assert.Equal(t, enums.NotificationTypeOrderConfirmation, customerMsgs[0].Type)
	assert.Contains(t, customerMsgs[0].Body, order.PickupCode)
	assert.Equal(t, enums.NotificationTypeOrderConfirmation, customerMsgs[1].Type)
	assert.Equal(t, enums.NotificationTypeOrderUpdate, customerMsgs[2].Type)
	for _, m := range customerMsgs {
		require.NotNil(t, m.OrderID)
		assert.Equal(t, order.ID, *m.OrderID)
	}

	ownerMsgs := f.notifier.byUser(owner.UserID)
	require.Len(t, ownerMsgs, 2)
	assert.Equal(t, "New order", ownerMsgs[0].Title)
	assert.Equal(t, "New review", ownerMsgs[1].Title)
}

func TestRejectedNotificationDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.notifier.reject = true
	_, bag := f.seedBag(t, 2, "3.00")
	customer := f.newCustomer(t)

	order, err := f.svc.Place(context.Background(), customer, PlaceInput{BagID: bag.ID, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, f.reloadOrder(t, order.ID).Status)
	assert.Len(t, f.notifier.byUser(customer.UserID), 1)
}

func TestListIsScopedByRole(t *testing.T) {
	f := newFixture(t)
	ownerA, bagA := f.seedBag(t, 10, "3.00")
	ownerB, bagB := f.seedBag(t, 10, "3.00")
	alice := f.newCustomer(t)
	bob := f.newCustomer(t)
	ctx := context.Background()

	a1, err := f.svc.Place(ctx, alice, PlaceInput{BagID: bagA.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Place(ctx, alice, PlaceInput{BagID: bagB.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.Place(ctx, bob, PlaceInput{BagID: bagA.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, ownerA, a1.ID)
	require.NoError(t, err)

	count := func(actor Actor, status *enums.OrderStatus) int {
		page, err := f.svc.List(ctx, actor, ListParams{Status: status, Params: pagination.Params{Limit: 50}})
		require.NoError(t, err)
		return len(page.Items)
	}
	confirmed := enums.OrderStatusConfirmed

	assert.Equal(t, 2, count(alice, nil))
	assert.Equal(t, 1, count(bob, nil))
	assert.Equal(t, 2, count(ownerA, nil))
	assert.Equal(t, 1, count(ownerB, nil))
	assert.Equal(t, 3, count(Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, nil))
	assert.Equal(t, 1, count(alice, &confirmed))
	assert.Equal(t, 0, count(bob, &confirmed))

	bogus := enums.OrderStatus("shipped")
	_, err = f.svc.List(ctx, alice, ListParams{Status: &bogus})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestListPaginatesWithCursor(t *testing.T) {
	f := newFixture(t)
	_, bag := f.seedBag(t, 10, "3.00")
	ctx := context.Background()

	customers := make([]Actor, 5)
	placed := map[uuid.UUID]bool{}
	for i := range customers {
		customers[i] = f.newCustomer(t)
		order, err := f.svc.Place(ctx, customers[i], PlaceInput{BagID: bag.ID, Quantity: 1})
		require.NoError(t, err)
		placed[order.ID] = true
	}

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	seen := map[uuid.UUID]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := f.svc.List(ctx, admin, ListParams{Params: pagination.Params{Limit: 2, Cursor: cursor}})
		require.NoError(t, err)
		pages++
		for _, item := range page.Items {
			assert.False(t, seen[item.ID], "duplicate %s", item.ID)
			seen[item.ID] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	assert.Equal(t, 3, pages)
	assert.Equal(t, placed, seen)

	_, err := f.svc.List(ctx, admin, ListParams{Params: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	owner, bag := f.seedBag(t, 3, "3.00")
	otherOwner, _ := f.seedBag(t, 3, "3.00")
	customer := f.newCustomer(t)
	ctx := context.Background()

	order, err := f.svc.Place(ctx, customer, PlaceInput{BagID: bag.ID, Quantity: 1})
	require.NoError(t, err)

	detail, err := f.svc.Get(ctx, customer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, bag.Title, detail.BagTitle)
	assert.Equal(t, owner.UserID, detail.BusinessID)

	_, err = f.svc.Get(ctx, owner, order.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, order.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, otherOwner, order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.Get(ctx, f.newCustomer(t), order.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
	_, err = f.svc.Get(ctx, customer, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestListBusinessReviews(t *testing.T) {
	f := newFixture(t)
	owner, bag := f.seedBag(t, 5, "3.00")
	ctx := context.Background()

	var rated uuid.UUID
	for i, rating := range []int{5, 0} {
		customer := f.newCustomer(t)
		order, err := f.svc.Place(ctx, customer, PlaceInput{BagID: bag.ID, Quantity: 1})
		require.NoError(t, err)
		_, err = f.svc.Confirm(ctx, owner, order.ID)
		require.NoError(t, err)
		_, err = f.svc.Complete(ctx, owner, order.ID)
		require.NoError(t, err)
		if i == 0 {
			_, err = f.svc.Rate(ctx, customer, order.ID, RateInput{Rating: rating})
			require.NoError(t, err)
			rated = order.ID
		}
	}

	page, err := f.svc.ListBusinessReviews(ctx, owner.UserID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, rated, page.Items[0].OrderID)
	assert.Equal(t, 5, page.Items[0].Rating)
	assert.Equal(t, bag.Title, page.Items[0].BagTitle)

	empty, err := f.svc.ListBusinessReviews(ctx, uuid.New(), pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)

	_, err = f.svc.ListBusinessReviews(ctx, uuid.Nil, pagination.Params{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestStockConservedAcrossLifecycle(t *testing.T) {
	const stock = 8
	f := newFixture(t)
	owner, bag := f.seedBag(t, stock, "2.00")
	ctx := context.Background()

	var placed []*models.Order
	for _, qty := range []int{1, 2, 3, 1} {
		order, err := f.svc.Place(ctx, f.newCustomer(t), PlaceInput{BagID: bag.ID, Quantity: qty})
		require.NoError(t, err)
		placed = append(placed, order)
	}
	_, err := f.svc.Confirm(ctx, owner, placed[0].ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, owner, placed[0].ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, owner, placed[1].ID)
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, owner, placed[2].ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, owner, placed[2].ID)
	require.NoError(t, err)

	var held int
	for _, o := range placed {
		if f.reloadOrder(t, o.ID).Status != enums.OrderStatusCancelled {
			held += o.Quantity
		}
	}
	stored := f.reloadBag(t, bag.ID)
	assert.Equal(t, stock, stored.QuantityAvailable+held)
	assert.Equal(t, 7, stored.QuantitySold)
	assert.GreaterOrEqual(t, stored.QuantityAvailable, 0)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}
