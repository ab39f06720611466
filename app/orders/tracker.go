package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lavega/order-pipeline/app/events"
	"github.com/lavega/order-pipeline/models"
)

// InvalidTransitionError is returned when a status change names an order the
// store does not hold.
type InvalidTransitionError struct {
	OrderNumber string
	From        models.OrderStatus
	To          models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot move from %s to %s: order not found", e.OrderNumber, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return models.ErrOrderNotFound
}

type OrderStore interface {
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	ListOrders(ctx context.Context, filters models.OrderFilters, offset, limit int) ([]models.Order, int64, error)
	ListPendingDates(ctx context.Context) ([]models.DateCount, error)
	UpdateOrderStatus(ctx context.Context, number string, from, to models.OrderStatus) (bool, error)
	SetDeliveryDate(ctx context.Context, number string, date time.Time) error
}

type statusChange struct {
	OrderNumber string             `json:"order_number"`
	Status      models.OrderStatus `json:"status"`
}

// Tracker owns the pending/completed lifecycle of stored orders.
type Tracker struct {
	store     OrderStore
	publisher events.Publisher
}

func NewTracker(store OrderStore, publisher events.Publisher) *Tracker {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Tracker{store: store, publisher: publisher}
}

// MarkCompleted removes the order from future reports. Completing an order
// twice is not an error.
func (t *Tracker) MarkCompleted(ctx context.Context, number string) error {
	return t.transition(ctx, number, models.OrderStatusPending, models.OrderStatusCompleted, events.TypeOrderCompleted)
}

// Reopen puts a completed order back into the pending reports.
func (t *Tracker) Reopen(ctx context.Context, number string) error {
	return t.transition(ctx, number, models.OrderStatusCompleted, models.OrderStatusPending, events.TypeOrderReopened)
}

func (t *Tracker) transition(ctx context.Context, number string, from, to models.OrderStatus, eventType string) error {
	changed, err := t.store.UpdateOrderStatus(ctx, number, from, to)
	if errors.Is(err, models.ErrOrderNotFound) {
		return &InvalidTransitionError{OrderNumber: number, From: from, To: to}
	}
	if err != nil {
		return fmt.Errorf("update order %s: %w", number, err)
	}
	if !changed {
		return nil
	}

	if err := t.publisher.Publish(ctx, events.NewEvent(eventType, statusChange{OrderNumber: number, Status: to})); err != nil {
		log.Printf("order %s: failed to publish %s: %v", number, eventType, err)
	}
	return nil
}

// SetDeliveryDate fixes the delivery date of an order imported without one,
// or moves an order to another day.
func (t *Tracker) SetDeliveryDate(ctx context.Context, number string, date time.Time) error {
	if err := t.store.SetDeliveryDate(ctx, number, models.DateOf(date)); err != nil {
		return fmt.Errorf("set delivery date of %s: %w", number, err)
	}
	return nil
}

func (t *Tracker) ListPendingDates(ctx context.Context) ([]models.DateCount, error) {
	return t.store.ListPendingDates(ctx)
}

// ListMissingDeliveryDate returns every order, pending or not, that has no
// delivery date and therefore appears in no report.
func (t *Tracker) ListMissingDeliveryDate(ctx context.Context) ([]models.Order, error) {
	orders, _, err := t.store.ListOrders(ctx, models.OrderFilters{MissingDeliveryDate: true}, 0, 0)
	return orders, err
}

func (t *Tracker) GetOrder(ctx context.Context, number string) (*models.Order, error) {
	return t.store.GetOrderByNumber(ctx, number)
}

func (t *Tracker) ListOrders(ctx context.Context, filters models.OrderFilters, offset, limit int) ([]models.Order, int64, error) {
	return t.store.ListOrders(ctx, filters, offset, limit)
}
