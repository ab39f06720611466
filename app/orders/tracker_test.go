package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lavega/order-pipeline/app/events"
	"github.com/lavega/order-pipeline/models"
	"github.com/lavega/order-pipeline/models/memstore"
)

// --- Mocks ---

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func eventOfType(eventType string) any {
	return mock.MatchedBy(func(e events.Event) bool { return e.Type == eventType })
}

// --- Helpers ---

var may1 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func seedOrders(t *testing.T, store *memstore.Store) {
	t.Helper()
	ctx := context.Background()
	may2 := may1.AddDate(0, 0, 1)
	for _, o := range []*models.Order{
		{OrderNumber: "#1001", CustomerName: "Ana", DeliveryDate: &may1},
		{OrderNumber: "#1002", CustomerName: "Luis", DeliveryDate: &may1},
		{OrderNumber: "#1003", CustomerName: "Eva", DeliveryDate: &may2},
		{OrderNumber: "#1004", CustomerName: "Sin Fecha"},
	} {
		o.Status = models.OrderStatusPending
		o.LineItems = []models.LineItem{{ProductName: "Pera", ProductKey: "pera", Quantity: 1}}
		require.NoError(t, store.InsertOrder(ctx, o))
	}
}

// --- Tests ---

func TestMarkCompleted(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := memstore.New()
	seedOrders(t, store)
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, eventOfType(events.TypeOrderCompleted)).Return(nil).Once()
	tracker := NewTracker(store, pub)

	// Act
	err := tracker.MarkCompleted(ctx, "#1001")

	// Assert
	require.NoError(t, err)
	order, err := tracker.GetOrder(ctx, "#1001")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.NotNil(t, order.CompletedAt)

	pending, err := store.ListOrdersByDate(ctx, may1, models.OrderStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "#1002", pending[0].OrderNumber)
	pub.AssertExpectations(t)
}

func TestMarkCompletedTwiceIsNotAnError(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seedOrders(t, store)
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, eventOfType(events.TypeOrderCompleted)).Return(nil).Once()
	tracker := NewTracker(store, pub)

	require.NoError(t, tracker.MarkCompleted(ctx, "#1001"))
	assert.NoError(t, tracker.MarkCompleted(ctx, "#1001"))

	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestMarkCompletedUnknownOrder(t *testing.T) {
	store := memstore.New()
	tracker := NewTracker(store, nil)

	err := tracker.MarkCompleted(context.Background(), "#9999")

	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "#9999", transitionErr.OrderNumber)
	assert.Equal(t, models.OrderStatusCompleted, transitionErr.To)
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestMarkCompletedPublishFailureIsIgnored(t *testing.T) {
	store := memstore.New()
	seedOrders(t, store)
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	tracker := NewTracker(store, pub)

	err := tracker.MarkCompleted(context.Background(), "#1002")

	assert.NoError(t, err)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seedOrders(t, store)
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, eventOfType(events.TypeOrderCompleted)).Return(nil).Once()
	pub.On("Publish", mock.Anything, eventOfType(events.TypeOrderReopened)).Return(nil).Once()
	tracker := NewTracker(store, pub)

	require.NoError(t, tracker.MarkCompleted(ctx, "#1001"))
	require.NoError(t, tracker.Reopen(ctx, "#1001"))
	require.NoError(t, tracker.Reopen(ctx, "#1001"))

	order, err := tracker.GetOrder(ctx, "#1001")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Nil(t, order.CompletedAt)
	pub.AssertExpectations(t)

	var transitionErr *InvalidTransitionError
	assert.ErrorAs(t, tracker.Reopen(ctx, "#404"), &transitionErr)
}

func TestSetDeliveryDate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seedOrders(t, store)
	tracker := NewTracker(store, nil)

	missing, err := tracker.ListMissingDeliveryDate(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "#1004", missing[0].OrderNumber)

	require.NoError(t, tracker.SetDeliveryDate(ctx, "#1004", may1.Add(15*time.Hour)))

	missing, err = tracker.ListMissingDeliveryDate(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)
	order, err := tracker.GetOrder(ctx, "#1004")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", models.FormatDate(order.DeliveryDate))

	err = tracker.SetDeliveryDate(ctx, "#404", may1)
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestListPendingDates(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seedOrders(t, store)
	tracker := NewTracker(store, nil)
	require.NoError(t, tracker.MarkCompleted(ctx, "#1003"))

	dates, err := tracker.ListPendingDates(ctx)

	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "2024-05-01", dates[0].Date.Format(models.DateLayout))
	assert.EqualValues(t, 2, dates[0].Orders)
}

func TestListOrders(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seedOrders(t, store)
	tracker := NewTracker(store, nil)

	page, total, err := tracker.ListOrders(ctx, models.OrderFilters{DeliveryDate: &may1}, 1, 10)

	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, page, 1)
	assert.Equal(t, "#1002", page[0].OrderNumber)
}
