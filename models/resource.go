package models

import "time"

// Resource is a document or link shared with members.
type Resource struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `json:"description"`
	URL         string    `gorm:"column:url" json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Resource) TableName() string { return "resources" }
