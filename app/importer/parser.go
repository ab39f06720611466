package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lavega/order-pipeline/models"
)

// Columns names the export headers the parser reads.
type Columns struct {
	OrderNumber    string `mapstructure:"order_number"`
	Email          string `mapstructure:"email"`
	ShippingName   string `mapstructure:"shipping_name"`
	BillingName    string `mapstructure:"billing_name"`
	Address        string `mapstructure:"address"`
	Phone          string `mapstructure:"phone"`
	ShippingPhone  string `mapstructure:"shipping_phone"`
	Total          string `mapstructure:"total"`
	CreatedAt      string `mapstructure:"created_at"`
	ProductName    string `mapstructure:"product_name"`
	Quantity       string `mapstructure:"quantity"`
	Price          string `mapstructure:"price"`
	SKU            string `mapstructure:"sku"`
	Unit           string `mapstructure:"unit"`
	NoteAttributes string `mapstructure:"note_attributes"`
}

// DefaultColumns matches the Shopify orders export.
func DefaultColumns() Columns {
	return Columns{
		OrderNumber:    "Name",
		Email:          "Email",
		ShippingName:   "Shipping Name",
		BillingName:    "Billing Name",
		Address:        "Shipping Address1",
		Phone:          "Phone",
		ShippingPhone:  "Shipping Phone",
		Total:          "Total",
		CreatedAt:      "Created at",
		ProductName:    "Lineitem name",
		Quantity:       "Lineitem quantity",
		Price:          "Lineitem price",
		SKU:            "Lineitem sku",
		Unit:           "Lineitem unit",
		NoteAttributes: "Note Attributes",
	}
}

var createdAtLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseResult is the candidate orders of an export, in order of first appearance,
// plus everything that was left out.
type ParseResult struct {
	Orders   []models.Order
	Errors   []*MalformedRowError
	Dropped  []string
	Warnings []string
}

type Parser struct {
	columns Columns
}

func NewParser(columns Columns) *Parser {
	return &Parser{columns: columns}
}

// Parse groups rows by order number. The platform writes one row per line item and
// repeats the order fields, so consecutive rows with the same number form one order;
// a number seen again later is merged into its first occurrence. Nil rows hold the
// place of records that could not be decoded and are skipped. Parse has no side
// effects.
func (p *Parser) Parse(rows []Row) ParseResult {
	var res ParseResult
	index := make(map[string]int)
	var orders []*models.Order

	for i, row := range rows {
		if row == nil {
			continue
		}
		rowNum := i + 1
		number := row.Get(p.columns.OrderNumber)
		if number == "" {
			res.Errors = append(res.Errors, &MalformedRowError{
				Row:    rowNum,
				Field:  p.columns.OrderNumber,
				Reason: "missing order number",
			})
			continue
		}

		pos, seen := index[number]
		if !seen {
			pos = len(orders)
			index[number] = pos
			orders = append(orders, &models.Order{OrderNumber: number})
		}
		order := orders[pos]
		res.Warnings = append(res.Warnings, p.fillOrder(order, row, rowNum)...)

		name := row.Get(p.columns.ProductName)
		if name == "" {
			continue
		}
		item, err := p.lineItem(row, rowNum, number, name)
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		item.Position = len(order.LineItems)
		order.LineItems = append(order.LineItems, item)
	}

	for _, order := range orders {
		if len(order.LineItems) == 0 {
			res.Dropped = append(res.Dropped, order.OrderNumber)
			res.Warnings = append(res.Warnings, fmt.Sprintf("order %s dropped: no valid line items", order.OrderNumber))
			continue
		}
		res.Orders = append(res.Orders, *order)
	}
	return res
}

// fillOrder copies order-level fields from row into order, keeping values already set.
func (p *Parser) fillOrder(order *models.Order, row Row, rowNum int) []string {
	var warnings []string

	setIfEmpty(&order.Email, row.Get(p.columns.Email))
	setIfEmpty(&order.CustomerName, firstNonEmpty(row.Get(p.columns.ShippingName), row.Get(p.columns.BillingName)))
	setIfEmpty(&order.Address, row.Get(p.columns.Address))
	setIfEmpty(&order.Phone, firstNonEmpty(row.Get(p.columns.Phone), row.Get(p.columns.ShippingPhone)))

	if raw := row.Get(p.columns.NoteAttributes); raw != "" {
		attrs := ParseNoteAttributes(raw)
		setIfEmpty(&order.Commune, attrs.Commune)
		if order.DeliveryDate == nil && attrs.DeliveryDate != nil {
			order.DeliveryDate = attrs.DeliveryDate
		}
		if attrs.InvalidDate != "" && order.DeliveryDate == nil {
			warnings = append(warnings, fmt.Sprintf("row %d (order %s): unreadable delivery date %q", rowNum, order.OrderNumber, attrs.InvalidDate))
		}
	}

	if order.Total.IsZero() {
		if raw := row.Get(p.columns.Total); raw != "" {
			total, err := decimal.NewFromString(raw)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("row %d (order %s): unreadable total %q", rowNum, order.OrderNumber, raw))
			} else {
				order.Total = total
			}
		}
	}

	if order.PlacedAt == nil {
		if raw := row.Get(p.columns.CreatedAt); raw != "" {
			if t, ok := parseCreatedAt(raw); ok {
				order.PlacedAt = &t
			}
		}
	}
	return warnings
}

func (p *Parser) lineItem(row Row, rowNum int, number, name string) (models.LineItem, *MalformedRowError) {
	quantity := 1
	if raw := row.Get(p.columns.Quantity); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil {
			return models.LineItem{}, &MalformedRowError{
				Row: rowNum, OrderNumber: number, Field: p.columns.Quantity,
				Reason: fmt.Sprintf("quantity %q is not a number", raw),
			}
		}
		if q <= 0 {
			return models.LineItem{}, &MalformedRowError{
				Row: rowNum, OrderNumber: number, Field: p.columns.Quantity,
				Reason: fmt.Sprintf("quantity %d is not positive", q),
			}
		}
		quantity = q
	}

	price := decimal.Zero
	if raw := row.Get(p.columns.Price); raw != "" {
		if v, err := decimal.NewFromString(raw); err == nil {
			price = v
		}
	}

	return models.LineItem{
		ProductName: name,
		ProductKey:  models.NormalizeProductName(name),
		Quantity:    quantity,
		Unit:        row.Get(p.columns.Unit),
		SKU:         row.Get(p.columns.SKU),
		Price:       price,
	}, nil
}

func parseCreatedAt(raw string) (time.Time, bool) {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func setIfEmpty(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
