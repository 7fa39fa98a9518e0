package models

import "time"

// Shop is a vendor storefront. Every product belongs to exactly one shop.
type Shop struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerUserID uint      `gorm:"column:owner_user_id;not null;index"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
