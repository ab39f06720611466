package models

import "time"

// Category groups products on the purchasing list.
// Position decides the order of the groups; ties are broken by name.
type Category struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"uniqueIndex;not null"`
	Position int    `gorm:"not null;default:0"`
}

func (c *Category) TableName() string {
	return "categories"
}

// DefaultCategories are seeded on first start.
var DefaultCategories = []Category{
	{Name: "Frutas", Position: 1},
	{Name: "Verduras", Position: 2},
	{Name: "Congelados", Position: 3},
	{Name: "Abarrotes", Position: 4},
	{Name: "Lácteos", Position: 5},
	{Name: "Carnes", Position: 6},
	{Name: "Otros", Position: 7},
}

// ProductCategoryMapping assigns a normalized product name to a category.
// ProductName keeps the spelling the operator assigned, used when displaying the product.
type ProductCategoryMapping struct {
	ID          uint     `gorm:"primaryKey"`
	ProductKey  string   `gorm:"uniqueIndex;not null"`
	ProductName string   `gorm:"not null"`
	CategoryID  uint     `gorm:"not null;index"`
	Category    Category `gorm:"foreignKey:CategoryID"`
	UpdatedAt   time.Time
}

func (m *ProductCategoryMapping) TableName() string {
	return "product_categories"
}

// DistinctProduct is one product key seen in stored line items, with the first spelling seen.
type DistinctProduct struct {
	ProductKey  string
	ProductName string
}
