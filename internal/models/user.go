package models

import (
	"time"
)

type User struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Email string `gorm:"size:255;not null;uniqueIndex"`
	Name  string `gorm:"size:120"`
}
