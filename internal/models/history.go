package models

import (
	"time"
)

// HistoryEvent est une entrée brute du journal de consultation. La
// déduplication par produit se fait au moment de la lecture, pas ici.
type HistoryEvent struct {
	SessionID string    `json:"session_id" db:"session_id"`
	ProductID string    `json:"product_id" db:"product_id"`
	ViewedAt  time.Time `json:"viewed_at" db:"viewed_at"`
}
