package models

import "time"

// Product is a catalog item addressed by its human-assigned Code.
type Product struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Code         string    `gorm:"size:50;not null;uniqueIndex" json:"code"` // QR label payload
	Name         string    `gorm:"size:100;not null" json:"name"`
	Unit         string    `gorm:"size:20;not null" json:"unit"` // box, bottle, sheet...
	CurrentStock int       `gorm:"not null;default:0" json:"current_stock"`
	Version      int64     `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
