package models

import (
	"time"
)

type Review struct {
	ID        string    `json:"id" db:"id"`
	ProductID string    `json:"product_id" db:"product_id"`
	Author    string    `json:"author" db:"author"`
	Rating    int       `json:"rating" db:"rating"` // 1-5
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
