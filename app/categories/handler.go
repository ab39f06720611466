package categories

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lavega/order-pipeline/app/api"
	"github.com/lavega/order-pipeline/models"
)

type CategoryResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type CategoryService interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, name string) (*models.Category, error)
	ListUnassignedProducts(ctx context.Context) ([]string, error)
	Assign(ctx context.Context, productName string, categoryID uint) error
}

type CategoryHandler struct {
	svc CategoryService
}

func NewCategoryHandler(svc CategoryService) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

func (h *CategoryHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to fetch categories")
		return
	}

	response := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		response[i] = CategoryResponse{
			ID:       c.ID,
			Name:     c.Name,
			Position: c.Position,
		}
	}

	api.OKResponse(w, response)
}

func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	category, err := h.svc.CreateCategory(r.Context(), input.Name)
	switch {
	case err == nil:
	case errors.Is(err, ErrEmptyCategoryName):
		api.ErrorResponse(w, http.StatusBadRequest, "Missing name")
		return
	case errors.Is(err, models.ErrCategoryExists):
		api.ErrorResponse(w, http.StatusConflict, "Category already exists")
		return
	default:
		api.ErrorResponse(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	api.JSONResponse(w, http.StatusCreated, CategoryResponse{
		ID:       category.ID,
		Name:     category.Name,
		Position: category.Position,
	})
}

func (h *CategoryHandler) HandleUnassigned(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListUnassignedProducts(r.Context())
	if err != nil {
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to fetch unassigned products")
		return
	}
	api.OKResponse(w, products)
}

func (h *CategoryHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Product    string `json:"product"`
		CategoryID uint   `json:"category_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	err := h.svc.Assign(r.Context(), input.Product, input.CategoryID)
	switch {
	case err == nil:
		api.OKResponse(w, map[string]string{"message": "Category assigned"})
	case errors.Is(err, ErrEmptyProductName):
		api.ErrorResponse(w, http.StatusBadRequest, "Missing product")
	case errors.Is(err, models.ErrCategoryNotFound):
		api.ErrorResponse(w, http.StatusNotFound, "Category not found")
	default:
		api.ErrorResponse(w, http.StatusInternalServerError, "Failed to assign category")
	}
}
