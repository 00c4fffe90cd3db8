package models

import (
	"time"
)

type Product struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Slug        string     `json:"slug" db:"slug"`
	Description string     `json:"description" db:"description"`
	Price       float64    `json:"price" db:"price"`
	Stock       int        `json:"stock" db:"stock"`
	CategoryID  string     `json:"category_id" db:"category_id"`
	Brand       string     `json:"brand" db:"brand"`
	Image       string     `json:"image" db:"image"`
	Images      StringList `json:"images,omitempty" db:"images"`
	Popularity  int64      `json:"popularity" db:"popularity"`
	Attributes  Attributes `json:"attributes" db:"attributes"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// ProductView est un produit enrichi au moment de la lecture avec le nom et
// le slug de sa catégorie. Jamais persisté, recalculé à chaque requête.
type ProductView struct {
	Product
	CategoryName string     `json:"category_name,omitempty"`
	CategorySlug string     `json:"category_slug,omitempty"`
	ViewedAt     *time.Time `json:"viewed_at,omitempty"`
	Reviews      []Review   `json:"reviews,omitempty"`
}
