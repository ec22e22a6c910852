package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserType discriminates the kinds of user stored in the agents table.
type UserType string

const (
	UserTypeMember UserType = "MEMBER"
	UserTypeAgent  UserType = "AGENT"
)

// AgentType is the commercial tier of an agent.
type AgentType string

const (
	AgentTypeBasic AgentType = "BASIC"
	AgentTypeVIP   AgentType = "VIP"
	AgentTypeDIY   AgentType = "DIY"
)

// AgentTypes lists the selectable tiers in display order.
var AgentTypes = []AgentType{AgentTypeBasic, AgentTypeVIP, AgentTypeDIY}

// Column names that carry unique constraints. Duplicate key failures
// report one of these.
const (
	FieldReferralCode       = "referral_code"
	FieldNormalizedUserName = "normalized_user_name"
)

// Agent is a user record participating in the referral hierarchy.
// It maps to the `agents` table. ReferrerID is a nullable self reference;
// ReferralCode is unique when present.
type Agent struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	UserName           string    `gorm:"size:256;not null" json:"user_name"`
	NormalizedUserName string    `gorm:"size:256;not null" json:"-"`
	Email              string    `gorm:"size:256" json:"email"`
	NormalizedEmail    string    `gorm:"size:256" json:"-"`
	PasswordHash       string    `json:"-"`
	FirstName          string    `gorm:"size:100" json:"first_name"`
	LastName           string    `gorm:"size:100" json:"last_name"`
	PhoneNumber        *string   `json:"phone_number,omitempty"`
	AgentType          AgentType `gorm:"size:100" json:"agent_type"`
	UserType           UserType  `gorm:"size:20;not null" json:"user_type"`
	ReferrerID         *string   `gorm:"size:36" json:"referrer_id,omitempty"`
	ReferralCode       *string   `gorm:"size:16" json:"referral_code,omitempty"`
	Subscribed         bool      `gorm:"not null" json:"subscribed"`
	CreatedAt          time.Time `json:"created_at"`

	Wallet *Wallet `gorm:"foreignKey:AgentID" json:"wallet,omitempty"`
}

func (Agent) TableName() string { return "agents" }

// BeforeCreate assigns a random identifier when none was set.
func (a *Agent) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// FullName joins first and last name.
func (a Agent) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Normalize prepares the case-insensitive lookup columns.
func (a *Agent) Normalize() {
	a.NormalizedUserName = NormalizeKey(a.UserName)
	a.NormalizedEmail = NormalizeKey(a.Email)
}

// NormalizeKey is the canonical form used for unique lookups.
func NormalizeKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseAgentType returns the tier named by s, defaulting to BASIC.
func ParseAgentType(s string) (AgentType, bool) {
	if strings.TrimSpace(s) == "" {
		return AgentTypeBasic, true
	}
	t := AgentType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AgentTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}
