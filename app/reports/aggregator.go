package reports

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lavega/order-pipeline/models"
)

// UnassignedBucket is the purchasing group of products without a category.
const UnassignedBucket = "Sin categoría"

type SortKey string

const (
	SortByOrderNumber SortKey = "order_number"
	SortByCustomer    SortKey = "customer"
)

func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "", SortByOrderNumber:
		return SortByOrderNumber, nil
	case SortByCustomer:
		return SortByCustomer, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

type OrderReader interface {
	ListOrdersByDate(ctx context.Context, date time.Time, status models.OrderStatus) ([]models.Order, error)
}

type MappingReader interface {
	ListCategoryMappings(ctx context.Context) ([]models.ProductCategoryMapping, error)
}

type PurchasingItem struct {
	Product  string `json:"product"`
	Key      string `json:"key"`
	Quantity int    `json:"quantity"`
}

type PurchasingGroup struct {
	Category   string           `json:"category"`
	CategoryID uint             `json:"category_id,omitempty"`
	Position   int              `json:"-"`
	Items      []PurchasingItem `json:"items"`
}

// PurchasingList is the quantity to buy per product for one delivery date.
// Unassigned lists the products that fell into UnassignedBucket.
type PurchasingList struct {
	Date       string            `json:"date"`
	Orders     int               `json:"orders"`
	Groups     []PurchasingGroup `json:"groups"`
	Unassigned []string          `json:"unassigned"`
}

type AssemblyItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit,omitempty"`
}

type AssemblyOrder struct {
	OrderNumber string         `json:"order_number"`
	Customer    string         `json:"customer"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Address     string         `json:"address"`
	Commune     string         `json:"commune"`
	Total       string         `json:"total"`
	Items       []AssemblyItem `json:"items"`
}

// AssemblyList is the packing detail of every order due on one delivery date.
type AssemblyList struct {
	Date   string          `json:"date"`
	SortBy SortKey         `json:"sort_by"`
	Orders []AssemblyOrder `json:"orders"`
}

// Aggregator derives the purchasing and assembly lists from the current store state.
// Both lists cover pending orders only and are rebuilt on every call.
type Aggregator struct {
	orders   OrderReader
	mappings MappingReader
}

func NewAggregator(orders OrderReader, mappings MappingReader) *Aggregator {
	return &Aggregator{orders: orders, mappings: mappings}
}

func (a *Aggregator) BuildPurchasingList(ctx context.Context, date time.Time) (*PurchasingList, error) {
	orders, err := a.orders.ListOrdersByDate(ctx, date, models.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", date.Format(models.DateLayout), err)
	}
	mappings, err := a.mappings.ListCategoryMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list category mappings: %w", err)
	}
	byKey := make(map[string]models.ProductCategoryMapping, len(mappings))
	for _, m := range mappings {
		byKey[m.ProductKey] = m
	}

	type bucket struct {
		group *PurchasingGroup
		items map[string]*PurchasingItem
	}
	buckets := make(map[uint]*bucket)
	unassignedSeen := make(map[string]bool)
	list := &PurchasingList{
		Date:       date.Format(models.DateLayout),
		Orders:     len(orders),
		Groups:     []PurchasingGroup{},
		Unassigned: []string{},
	}

	for _, order := range orders {
		for _, item := range order.LineItems {
			key := item.ProductKey
			if key == "" {
				key = models.NormalizeProductName(item.ProductName)
			}

			// category id 0 is the unassigned bucket
			var categoryID uint
			display := item.ProductName
			if m, ok := byKey[key]; ok {
				categoryID = m.CategoryID
				display = m.ProductName
			}

			b, ok := buckets[categoryID]
			if !ok {
				g := &PurchasingGroup{Category: UnassignedBucket, Position: math.MaxInt}
				if categoryID != 0 {
					c := byKey[key].Category
					g = &PurchasingGroup{Category: c.Name, CategoryID: categoryID, Position: c.Position}
				}
				b = &bucket{group: g, items: make(map[string]*PurchasingItem)}
				buckets[categoryID] = b
			}

			if categoryID == 0 && !unassignedSeen[key] {
				unassignedSeen[key] = true
				list.Unassigned = append(list.Unassigned, item.ProductName)
			}

			if existing, ok := b.items[key]; ok {
				existing.Quantity += item.Quantity
				continue
			}
			b.items[key] = &PurchasingItem{Product: display, Key: key, Quantity: item.Quantity}
		}
	}

	for _, b := range buckets {
		for _, item := range b.items {
			b.group.Items = append(b.group.Items, *item)
		}
		slices.SortFunc(b.group.Items, func(x, y PurchasingItem) int {
			return cmp.Or(
				cmp.Compare(strings.ToLower(x.Product), strings.ToLower(y.Product)),
				cmp.Compare(x.Key, y.Key),
			)
		})
		list.Groups = append(list.Groups, *b.group)
	}
	slices.SortFunc(list.Groups, func(x, y PurchasingGroup) int {
		return cmp.Or(
			cmp.Compare(x.Position, y.Position),
			cmp.Compare(x.Category, y.Category),
		)
	})
	return list, nil
}

func (a *Aggregator) BuildAssemblyList(ctx context.Context, date time.Time, sortBy SortKey) (*AssemblyList, error) {
	orders, err := a.orders.ListOrdersByDate(ctx, date, models.OrderStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list orders for %s: %w", date.Format(models.DateLayout), err)
	}
	if sortBy == "" {
		sortBy = SortByOrderNumber
	}

	list := &AssemblyList{
		Date:   date.Format(models.DateLayout),
		SortBy: sortBy,
		Orders: make([]AssemblyOrder, 0, len(orders)),
	}
	for _, o := range orders {
		items := slices.Clone(o.LineItems)
		slices.SortStableFunc(items, func(x, y models.LineItem) int {
			return cmp.Compare(x.Position, y.Position)
		})

		entry := AssemblyOrder{
			OrderNumber: o.OrderNumber,
			Customer:    o.CustomerName,
			Email:       o.Email,
			Phone:       o.Phone,
			Address:     o.Address,
			Commune:     o.Commune,
			Total:       o.Total.StringFixed(2),
			Items:       make([]AssemblyItem, len(items)),
		}
		for i, item := range items {
			entry.Items[i] = AssemblyItem{Product: item.ProductName, Quantity: item.Quantity, Unit: item.Unit}
		}
		list.Orders = append(list.Orders, entry)
	}

	slices.SortFunc(list.Orders, func(x, y AssemblyOrder) int {
		if sortBy == SortByCustomer {
			if c := cmp.Compare(strings.ToLower(x.Customer), strings.ToLower(y.Customer)); c != 0 {
				return c
			}
		}
		return compareOrderNumbers(x.OrderNumber, y.OrderNumber)
	})
	return list, nil
}

// compareOrderNumbers orders "#999" before "#1001" by comparing the digits of both
// numbers numerically, falling back to plain string order.
func compareOrderNumbers(a, b string) int {
	na, okA := orderSequence(a)
	nb, okB := orderSequence(b)
	if okA && okB && na != nb {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}

func orderSequence(number string) (uint64, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	return n, err == nil
}
