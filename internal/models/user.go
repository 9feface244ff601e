package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleFarmer      Role = "FARMER"
	RoleDistributor Role = "DISTRIBUTOR"
	RoleRetailer    Role = "RETAILER"
	RoleConsumer    Role = "CONSUMER"
	RoleAdmin       Role = "ADMIN"
)

// User is a read model of the identity subsystem. Accounts are created and
// verified elsewhere; this service only needs the id, name and role for
// ownership and supply-chain checks.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	FullName  string         `gorm:"not null" json:"full_name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      Role           `gorm:"type:varchar(20);not null;default:'CONSUMER'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin checks if user has admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanBuyFrom enforces the supply-chain ordering: farmers sell to
// distributors, distributors to retailers, retailers to consumers.
func (u *User) CanBuyFrom(seller Role) bool {
	switch seller {
	case RoleFarmer:
		return u.Role == RoleDistributor
	case RoleDistributor:
		return u.Role == RoleRetailer
	case RoleRetailer:
		return u.Role == RoleConsumer
	default:
		return false
	}
}
