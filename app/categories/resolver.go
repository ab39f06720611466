package categories

import (
	"context"
	"errors"
	"strings"

	"github.com/lavega/order-pipeline/models"
)

var (
	ErrEmptyProductName  = errors.New("product name is empty")
	ErrEmptyCategoryName = errors.New("category name is empty")
)

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryByID(ctx context.Context, id uint) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategoryMapping(ctx context.Context, productKey string) (*models.ProductCategoryMapping, error)
	SetCategoryMapping(ctx context.Context, mapping *models.ProductCategoryMapping) error
	ListCategoryMappings(ctx context.Context) ([]models.ProductCategoryMapping, error)
}

type ProductLister interface {
	ListDistinctProductNames(ctx context.Context) ([]models.DistinctProduct, error)
}

// Resolver maps product names to categories through the stored product table.
// Nothing is cached: an assignment is visible to the next lookup.
type Resolver struct {
	store    CategoryStore
	products ProductLister
}

func NewResolver(store CategoryStore, products ProductLister) *Resolver {
	return &Resolver{store: store, products: products}
}

// Resolve returns the category of productName. The boolean is false when the
// product is unassigned.
func (r *Resolver) Resolve(ctx context.Context, productName string) (models.Category, bool, error) {
	key := models.NormalizeProductName(productName)
	if key == "" {
		return models.Category{}, false, ErrEmptyProductName
	}

	mapping, err := r.store.GetCategoryMapping(ctx, key)
	if errors.Is(err, models.ErrMappingNotFound) {
		return models.Category{}, false, nil
	}
	if err != nil {
		return models.Category{}, false, err
	}
	return mapping.Category, true, nil
}

// Assign maps productName to the category, replacing any previous assignment.
func (r *Resolver) Assign(ctx context.Context, productName string, categoryID uint) error {
	key := models.NormalizeProductName(productName)
	if key == "" {
		return ErrEmptyProductName
	}
	if _, err := r.store.GetCategoryByID(ctx, categoryID); err != nil {
		return err
	}

	return r.store.SetCategoryMapping(ctx, &models.ProductCategoryMapping{
		ProductKey:  key,
		ProductName: strings.Join(strings.Fields(productName), " "),
		CategoryID:  categoryID,
	})
}

// ListUnassignedProducts returns every stored product without a category, spelled
// as first seen and in order of first appearance.
func (r *Resolver) ListUnassignedProducts(ctx context.Context) ([]string, error) {
	products, err := r.products.ListDistinctProductNames(ctx)
	if err != nil {
		return nil, err
	}
	mapped, err := r.Mappings(ctx)
	if err != nil {
		return nil, err
	}

	unassigned := []string{}
	for _, p := range products {
		if _, ok := mapped[p.ProductKey]; ok {
			continue
		}
		unassigned = append(unassigned, p.ProductName)
	}
	return unassigned, nil
}

// Mappings returns a snapshot of all assignments keyed by product key.
func (r *Resolver) Mappings(ctx context.Context) (map[string]models.ProductCategoryMapping, error) {
	mappings, err := r.store.ListCategoryMappings(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.ProductCategoryMapping, len(mappings))
	for _, m := range mappings {
		out[m.ProductKey] = m
	}
	return out, nil
}

func (r *Resolver) ListCategories(ctx context.Context) ([]models.Category, error) {
	return r.store.ListCategories(ctx)
}

// CreateCategory adds a category after the existing ones.
func (r *Resolver) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyCategoryName
	}
	category := &models.Category{Name: name}
	if err := r.store.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}
