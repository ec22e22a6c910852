package models

import "time"

// Client is a customer brought in by an agent. ReferrerID is nullable.
type Client struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	FirstName   string    `gorm:"size:100" json:"first_name"`
	LastName    string    `gorm:"size:100" json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Company     string    `gorm:"size:100" json:"company"`
	Address     string    `gorm:"size:100" json:"address"`
	City        string    `gorm:"size:100" json:"city"`
	State       string    `gorm:"size:100" json:"state"`
	ZipCode     string    `gorm:"size:6" json:"zip_code"`
	ReferrerID  *string   `gorm:"size:36" json:"referrer_id,omitempty"`
	DateAdded   time.Time `json:"date_added"`
}

func (Client) TableName() string { return "clients" }
