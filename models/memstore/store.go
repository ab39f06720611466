// Package memstore keeps orders, categories and import batches in process memory.
// It implements the same method sets as the gorm repositories in models and is
// safe for concurrent use.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lavega/order-pipeline/models"
)

type Store struct {
	mu sync.RWMutex

	orders   []*models.Order
	byNumber map[string]*models.Order
	nextID   uint
	nextItem uint

	categories []models.Category
	nextCat    uint
	mappings   map[string]models.ProductCategoryMapping
	nextMap    uint

	batches []models.ImportBatch
}

func New() *Store {
	return &Store{
		byNumber: make(map[string]*models.Order),
		mappings: make(map[string]models.ProductCategoryMapping),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) InsertOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byNumber[order.OrderNumber]; ok {
		return models.ErrOrderExists
	}
	s.nextID++
	order.ID = s.nextID
	for i := range order.LineItems {
		s.nextItem++
		order.LineItems[i].ID = s.nextItem
		order.LineItems[i].OrderID = order.ID
	}
	stored := cloneOrder(order)
	s.orders = append(s.orders, stored)
	s.byNumber[order.OrderNumber] = stored
	return nil
}

func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.byNumber[number]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrdersByDate(ctx context.Context, date time.Time, status models.OrderStatus) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Order
	for _, o := range s.orders {
		if !o.HasDeliveryDate() || !models.SameDay(*o.DeliveryDate, date) || o.Status != status {
			continue
		}
		out = append(out, *cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

func (s *Store) ListOrders(ctx context.Context, filters models.OrderFilters, offset, limit int) ([]models.Order, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []models.Order
	for _, o := range s.orders {
		if filters.DeliveryDate != nil && (!o.HasDeliveryDate() || !models.SameDay(*o.DeliveryDate, *filters.DeliveryDate)) {
			continue
		}
		if filters.MissingDeliveryDate && o.HasDeliveryDate() {
			continue
		}
		if filters.Status != "" && o.Status != filters.Status {
			continue
		}
		matched = append(matched, *cloneOrder(o))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		da, db := models.FormatDate(a.DeliveryDate), models.FormatDate(b.DeliveryDate)
		if da != db {
			return da < db
		}
		return a.OrderNumber < b.OrderNumber
	})

	total := int64(len(matched))
	start := min(offset, len(matched))
	end := len(matched)
	if limit > 0 {
		end = min(offset+limit, len(matched))
	}
	return matched[start:end], total, nil
}

func (s *Store) ListPendingDates(ctx context.Context) ([]models.DateCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, o := range s.orders {
		if o.Status != models.OrderStatusPending || !o.HasDeliveryDate() {
			continue
		}
		counts[o.DeliveryDate.Format(models.DateLayout)]++
	}
	out := make([]models.DateCount, 0, len(counts))
	for day, n := range counts {
		d, _ := models.ParseDate(day)
		out = append(out, models.DateCount{Date: d, Orders: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, number string, from, to models.OrderStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.byNumber[number]
	if !ok {
		return false, models.ErrOrderNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	o.CompletedAt = nil
	if to == models.OrderStatusCompleted {
		now := time.Now().UTC()
		o.CompletedAt = &now
	}
	return true, nil
}

func (s *Store) SetDeliveryDate(ctx context.Context, number string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.byNumber[number]
	if !ok {
		return models.ErrOrderNotFound
	}
	d := models.DateOf(date)
	o.DeliveryDate = &d
	return nil
}

func (s *Store) ListDistinctProductNames(ctx context.Context) ([]models.DistinctProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []models.DistinctProduct
	for _, o := range s.orders {
		for _, item := range o.LineItems {
			if seen[item.ProductKey] {
				continue
			}
			seen[item.ProductKey] = true
			out = append(out, models.DistinctProduct{ProductKey: item.ProductKey, ProductName: item.ProductName})
		}
	}
	return out, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Category, len(s.categories))
	copy(out, s.categories)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.ID == id {
			cat := c
			return &cat, nil
		}
	}
	return nil, models.ErrCategoryNotFound
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCategoryLocked(category)
}

func (s *Store) SeedCategories(ctx context.Context, categories []models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range categories {
		cat := c
		if err := s.createCategoryLocked(&cat); err != nil && err != models.ErrCategoryExists {
			return err
		}
	}
	return nil
}

func (s *Store) createCategoryLocked(category *models.Category) error {
	last := 0
	for _, c := range s.categories {
		if c.Name == category.Name {
			return models.ErrCategoryExists
		}
		last = max(last, c.Position)
	}
	if category.Position == 0 {
		category.Position = last + 1
	}
	s.nextCat++
	category.ID = s.nextCat
	s.categories = append(s.categories, *category)
	return nil
}

func (s *Store) GetCategoryMapping(ctx context.Context, productKey string) (*models.ProductCategoryMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[productKey]
	if !ok {
		return nil, models.ErrMappingNotFound
	}
	m.Category = s.categoryLocked(m.CategoryID)
	return &m, nil
}

func (s *Store) SetCategoryMapping(ctx context.Context, mapping *models.ProductCategoryMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.categoryLocked(mapping.CategoryID).ID == 0 {
		return models.ErrCategoryNotFound
	}
	if existing, ok := s.mappings[mapping.ProductKey]; ok {
		mapping.ID = existing.ID
	} else {
		s.nextMap++
		mapping.ID = s.nextMap
	}
	mapping.UpdatedAt = time.Now().UTC()
	stored := *mapping
	stored.Category = models.Category{}
	s.mappings[mapping.ProductKey] = stored
	return nil
}

func (s *Store) ListCategoryMappings(ctx context.Context) ([]models.ProductCategoryMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProductCategoryMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		m.Category = s.categoryLocked(m.CategoryID)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductKey < out[j].ProductKey })
	return out, nil
}

func (s *Store) categoryLocked(id uint) models.Category {
	for _, c := range s.categories {
		if c.ID == id {
			return c
		}
	}
	return models.Category{}
}

func (s *Store) CreateImportBatch(ctx context.Context, batch *models.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}
	s.batches = append(s.batches, *batch)
	return nil
}

func (s *Store) ListImportBatches(ctx context.Context, limit int) ([]models.ImportBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ImportBatch, 0, min(limit, len(s.batches)))
	for i := len(s.batches) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.batches[i])
	}
	return out, nil
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.LineItems = make([]models.LineItem, len(o.LineItems))
	copy(c.LineItems, o.LineItems)
	if o.DeliveryDate != nil {
		d := *o.DeliveryDate
		c.DeliveryDate = &d
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
