package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lavega/order-pipeline/app/api"
	"github.com/lavega/order-pipeline/models"
)

type Response struct {
	Total  int     `json:"total"`
	Orders []Order `json:"orders"`
}

type Order struct {
	OrderNumber  string             `json:"order_number"`
	Customer     string             `json:"customer"`
	Commune      string             `json:"commune"`
	DeliveryDate string             `json:"delivery_date"`
	Status       models.OrderStatus `json:"status"`
	Total        float64            `json:"total"`
}

type LineItem struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
	SKU      string  `json:"sku,omitempty"`
	Price    float64 `json:"price"`
}

type OrderDetail struct {
	Order
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	PlacedAt    *time.Time `json:"placed_at,omitempty"`
	ImportedAt  time.Time  `json:"imported_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	LineItems   []LineItem `json:"line_items"`
}

type PendingDate struct {
	Date   string `json:"date"`
	Orders int64  `json:"orders"`
}

type OrderService interface {
	MarkCompleted(ctx context.Context, number string) error
	Reopen(ctx context.Context, number string) error
	SetDeliveryDate(ctx context.Context, number string, date time.Time) error
	ListPendingDates(ctx context.Context) ([]models.DateCount, error)
	ListMissingDeliveryDate(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, number string) (*models.Order, error)
	ListOrders(ctx context.Context, filters models.OrderFilters, offset, limit int) ([]models.Order, int64, error)
}

type OrderHandler struct {
	svc OrderService
}

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	offset, limit := api.Pagination(r)

	var filters models.OrderFilters
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		date, err := models.ParseDate(dateStr)
		if err != nil {
			api.ErrorResponse(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		filters.DeliveryDate = &date
	}
	if status := models.OrderStatus(r.URL.Query().Get("status")); status != "" {
		if !status.Valid() {
			api.ErrorResponse(w, http.StatusBadRequest, "Invalid status")
			return
		}
		filters.Status = status
	}

	res, total, err := h.svc.ListOrders(r.Context(), filters, offset, limit)
	if err != nil {
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}

	api.OKResponse(w, Response{
		Total:  int(total),
		Orders: toOrders(res),
	})
}

func (h *OrderHandler) HandleMissingDate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListMissingDeliveryDate(r.Context())
	if err != nil {
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}
	api.OKResponse(w, Response{Total: len(res), Orders: toOrders(res)})
}

func (h *OrderHandler) HandlePendingDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.svc.ListPendingDates(r.Context())
	if err != nil {
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to fetch pending dates")
		return
	}

	response := make([]PendingDate, len(dates))
	for i, d := range dates {
		response[i] = PendingDate{Date: d.Date.Format(models.DateLayout), Orders: d.Orders}
	}
	api.OKResponse(w, response)
}

func (h *OrderHandler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetOrder(r.Context(), r.PathValue("number"))
	if errors.Is(err, models.ErrOrderNotFound) {
		api.ErrorResponse(w, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to fetch order")
		return
	}

	items := make([]LineItem, len(order.LineItems))
	for i, item := range order.LineItems {
		items[i] = LineItem{
			Product:  item.ProductName,
			Quantity: item.Quantity,
			Unit:     item.Unit,
			SKU:      item.SKU,
			Price:    item.Price.InexactFloat64(),
		}
	}

	api.OKResponse(w, OrderDetail{
		Order:       toOrder(*order),
		Email:       order.Email,
		Phone:       order.Phone,
		Address:     order.Address,
		PlacedAt:    order.PlacedAt,
		ImportedAt:  order.ImportedAt,
		CompletedAt: order.CompletedAt,
		LineItems:   items,
	})
}

func (h *OrderHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.svc.MarkCompleted, models.OrderStatusCompleted)
}

func (h *OrderHandler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.svc.Reopen, models.OrderStatusPending)
}

func (h *OrderHandler) changeStatus(w http.ResponseWriter, r *http.Request, change func(context.Context, string) error, status models.OrderStatus) {
	number := r.PathValue("number")

	var transitionErr *InvalidTransitionError
	err := change(r.Context(), number)
	switch {
	case err == nil:
		api.OKResponse(w, map[string]string{"order_number": number, "status": string(status)})
	case errors.As(err, &transitionErr):
		api.ErrorResponse(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, models.ErrStoreUnavailable):
		api.ErrorResponse(w, http.StatusServiceUnavailable, "Order store unavailable")
	default:
		api.ErrorResponse(w, http.StatusInternalServerError, "Failed to update order")
	}
}

func (h *OrderHandler) HandleSetDeliveryDate(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Date string `json:"date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	date, err := models.ParseDate(input.Date)
	if err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	number := r.PathValue("number")
	err = h.svc.SetDeliveryDate(r.Context(), number, date)
	switch {
	case err == nil:
		api.OKResponse(w, map[string]string{"order_number": number, "delivery_date": date.Format(models.DateLayout)})
	case errors.Is(err, models.ErrOrderNotFound):
		api.ErrorResponse(w, http.StatusNotFound, "Order not found")
	default:
		api.ErrorResponse(w, http.StatusInternalServerError, "Failed to update order")
	}
}

func toOrders(res []models.Order) []Order {
	out := make([]Order, len(res))
	for i, o := range res {
		out[i] = toOrder(o)
	}
	return out
}

func toOrder(o models.Order) Order {
	return Order{
		OrderNumber:  o.OrderNumber,
		Customer:     o.CustomerName,
		Commune:      o.Commune,
		DeliveryDate: models.FormatDate(o.DeliveryDate),
		Status:       o.Status,
		Total:        o.Total.InexactFloat64(),
	}
}
