package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoriesRepository struct {
	db *gorm.DB
}

var (
	// ErrCategoryNotFound is returned when a category id does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryExists is returned when creating a category with a name already in use.
	ErrCategoryExists = errors.New("category already exists")
	// ErrMappingNotFound is returned when a product has no category assigned.
	ErrMappingNotFound = errors.New("product category mapping not found")
)

func NewCategoriesRepository(db *gorm.DB) *CategoriesRepository {
	return &CategoriesRepository{db: db}
}

func (r *CategoriesRepository) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := r.db.WithContext(ctx).
		Order("position ASC, name ASC").
		Find(&categories).Error; err != nil {
		return nil, storeError(err)
	}
	return categories, nil
}

func (r *CategoriesRepository) GetCategoryByID(ctx context.Context, id uint) (*Category, error) {
	var category Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, storeError(err)
	}
	return &category, nil
}

// CreateCategory stores a new category. A zero Position places it after every
// existing category.
func (r *CategoriesRepository) CreateCategory(ctx context.Context, category *Category) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if category.Position == 0 {
			var last int
			if err := tx.Model(&Category{}).
				Select("COALESCE(MAX(position), 0)").
				Scan(&last).Error; err != nil {
				return err
			}
			category.Position = last + 1
		}
		return tx.Create(category).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrCategoryExists
	}
	return storeError(err)
}

// SeedCategories inserts the given categories, skipping names already present.
func (r *CategoriesRepository) SeedCategories(ctx context.Context, categories []Category) error {
	if len(categories) == 0 {
		return nil
	}
	rows := make([]Category, len(categories))
	copy(rows, categories)
	return storeError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&rows).Error)
}

func (r *CategoriesRepository) GetCategoryMapping(ctx context.Context, productKey string) (*ProductCategoryMapping, error) {
	var mapping ProductCategoryMapping
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Where("product_key = ?", productKey).
		First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMappingNotFound
		}
		return nil, storeError(err)
	}
	return &mapping, nil
}

// SetCategoryMapping upserts the mapping keyed by ProductKey.
func (r *CategoriesRepository) SetCategoryMapping(ctx context.Context, mapping *ProductCategoryMapping) error {
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"product_name", "category_id", "updated_at"}),
		}).
		Create(mapping).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrCategoryNotFound
	}
	return storeError(err)
}

func (r *CategoriesRepository) ListCategoryMappings(ctx context.Context) ([]ProductCategoryMapping, error) {
	var mappings []ProductCategoryMapping
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Order("product_key ASC").
		Find(&mappings).Error; err != nil {
		return nil, storeError(err)
	}
	return mappings, nil
}
