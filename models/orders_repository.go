package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrdersRepository struct {
	db *gorm.DB
}

var (
	// ErrOrderNotFound is returned when no order has the requested number.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists is returned by InsertOrder when the order number is already stored.
	ErrOrderExists = errors.New("order already exists")
)

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{
		db: db,
	}
}

func (r *OrdersRepository) Ping(ctx context.Context) error {
	return ping(ctx, r.db)
}

// InsertOrder stores order and its line items in one transaction.
// The insert is conditional on the order number, so concurrent imports of the
// same number store it once; the loser gets ErrOrderExists.
func (r *OrdersRepository) InsertOrder(ctx context.Context, order *Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "order_number"}},
				DoNothing: true,
			}).
			Create(order)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderExists
		}
		if len(order.LineItems) == 0 {
			return nil
		}
		for i := range order.LineItems {
			order.LineItems[i].OrderID = order.ID
		}
		return tx.Create(&order.LineItems).Error
	})
	if errors.Is(err, ErrOrderExists) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrOrderExists
	}
	return storeError(err)
}

func (r *OrdersRepository) GetOrderByNumber(ctx context.Context, number string) (*Order, error) {
	var order Order
	if err := r.db.WithContext(ctx).
		Preload("LineItems", byPosition).
		Where("order_number = ?", number).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, storeError(err)
	}
	return &order, nil
}

// ListOrdersByDate returns the orders due on date with the given status,
// ordered by order number, line items in export order.
func (r *OrdersRepository) ListOrdersByDate(ctx context.Context, date time.Time, status OrderStatus) ([]Order, error) {
	var orders []Order
	if err := r.db.WithContext(ctx).
		Preload("LineItems", byPosition).
		Where("delivery_date = ? AND status = ?", date.Format(DateLayout), status).
		Order("order_number ASC").
		Find(&orders).Error; err != nil {
		return nil, storeError(err)
	}
	return orders, nil
}

// ListOrders returns one page of orders matching filters and the total number of
// matches. A limit of zero or less returns every match from offset on.
func (r *OrdersRepository) ListOrders(ctx context.Context, filters OrderFilters, offset, limit int) ([]Order, int64, error) {
	var orders []Order
	var total int64

	query := r.db.WithContext(ctx).Model(&Order{})

	if filters.DeliveryDate != nil {
		query = query.Where("delivery_date = ?", filters.DeliveryDate.Format(DateLayout))
	}
	if filters.MissingDeliveryDate {
		query = query.Where("delivery_date IS NULL")
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeError(err)
	}

	query = query.
		Preload("LineItems", byPosition).
		Order("delivery_date ASC NULLS FIRST, order_number ASC").
		Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, storeError(err)
	}

	return orders, total, nil
}

func (r *OrdersRepository) ListPendingDates(ctx context.Context) ([]DateCount, error) {
	var dates []DateCount
	if err := r.db.WithContext(ctx).
		Model(&Order{}).
		Select("delivery_date AS date, COUNT(*) AS orders").
		Where("status = ? AND delivery_date IS NOT NULL", OrderStatusPending).
		Group("delivery_date").
		Order("delivery_date ASC").
		Scan(&dates).Error; err != nil {
		return nil, storeError(err)
	}
	return dates, nil
}

// UpdateOrderStatus moves an order from one status to another in a single
// conditional update. It reports whether the row changed; an order already in
// the target status is left untouched and reported as unchanged.
func (r *OrdersRepository) UpdateOrderStatus(ctx context.Context, number string, from, to OrderStatus) (bool, error) {
	updates := map[string]any{"status": to, "completed_at": nil}
	if to == OrderStatusCompleted {
		updates["completed_at"] = time.Now().UTC()
	}

	res := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("order_number = ? AND status = ?", number, from).
		Updates(updates)
	if res.Error != nil {
		return false, storeError(res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("order_number = ?", number).
		Count(&count).Error; err != nil {
		return false, storeError(err)
	}
	if count == 0 {
		return false, ErrOrderNotFound
	}
	return false, nil
}

func (r *OrdersRepository) SetDeliveryDate(ctx context.Context, number string, date time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&Order{}).
		Where("order_number = ?", number).
		Update("delivery_date", date.Format(DateLayout))
	if res.Error != nil {
		return storeError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ListDistinctProductNames returns every product key found in stored line items,
// in order of first appearance, with the spelling of that first appearance.
func (r *OrdersRepository) ListDistinctProductNames(ctx context.Context) ([]DistinctProduct, error) {
	firstSeen := r.db.Model(&LineItem{}).
		Select("product_key, MIN(id) AS first_id").
		Group("product_key")

	var products []DistinctProduct
	if err := r.db.WithContext(ctx).
		Table("line_items AS li").
		Select("li.product_key, li.product_name").
		Joins("JOIN (?) AS f ON f.first_id = li.id", firstSeen).
		Order("li.id ASC").
		Scan(&products).Error; err != nil {
		return nil, storeError(err)
	}
	return products, nil
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
