package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/identity"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// UserModel is the persistence model for the User aggregate root.
type UserModel struct {
	VersionedRow
	Name              string             `gorm:"type:varchar(100);not null"`
	Email             string             `gorm:"type:varchar(200);not null;uniqueIndex"`
	Phone             string             `gorm:"type:varchar(20)"`
	PasswordHash      string             `gorm:"type:varchar(255);not null"`
	Role              string             `gorm:"type:varchar(20);not null;default:'customer'"`
	EmailVerified     bool               `gorm:"not null;default:false"`
	EmailOTPHash      string             `gorm:"column:email_otp_hash;type:varchar(128)"`
	EmailOTPExpiresAt *time.Time         `gorm:"column:email_otp_expires_at"`
	LastLoginAt       *time.Time
	Addresses         []UserAddressModel `gorm:"foreignKey:UserID;references:ID"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// UserAddressModel is one row of a user's address book.
// Postgres enforces a single default per user with a partial unique index.
type UserAddressModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Phone     string    `gorm:"type:varchar(20);not null"`
	Street    string    `gorm:"type:varchar(300);not null"`
	City      string    `gorm:"type:varchar(100);not null"`
	State     string    `gorm:"type:varchar(100);not null"`
	Pincode   string    `gorm:"type:varchar(6);not null"`
	Landmark  string    `gorm:"type:varchar(200)"`
	Type      string    `gorm:"type:varchar(10);not null;default:'home'"`
	IsDefault bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserAddressModel) TableName() string {
	return "user_addresses"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		Name:              m.Name,
		Email:             m.Email,
		Phone:             m.Phone,
		PasswordHash:      m.PasswordHash,
		Role:              identity.Role(m.Role),
		EmailVerified:     m.EmailVerified,
		EmailOTPHash:      m.EmailOTPHash,
		EmailOTPExpiresAt: m.EmailOTPExpiresAt,
		LastLoginAt:       m.LastLoginAt,
	}
	u.Aggregate = m.aggregate()
	if len(m.Addresses) > 0 {
		u.Addresses = make([]identity.Address, len(m.Addresses))
		for i := range m.Addresses {
			u.Addresses[i] = m.Addresses[i].ToDomain()
		}
	}
	return u
}

// ToDomain converts an address row to a domain address book entry.
func (m *UserAddressModel) ToDomain() identity.Address {
	return identity.Address{
		ID: m.ID,
		PostalAddress: valueobject.PostalAddress{
			Name:     m.Name,
			Phone:    m.Phone,
			Street:   m.Street,
			City:     m.City,
			State:    m.State,
			Pincode:  m.Pincode,
			Landmark: m.Landmark,
			Type:     valueobject.AddressType(m.Type),
		},
		IsDefault: m.IsDefault,
		CreatedAt: m.CreatedAt,
	}
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
// Addresses are mapped as well; repositories write them separately.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Name:              u.Name,
		Email:             u.Email,
		Phone:             u.Phone,
		PasswordHash:      u.PasswordHash,
		Role:              string(u.Role),
		EmailVerified:     u.EmailVerified,
		EmailOTPHash:      u.EmailOTPHash,
		EmailOTPExpiresAt: u.EmailOTPExpiresAt,
		LastLoginAt:       u.LastLoginAt,
	}
	m.setAggregate(u.Aggregate)
	m.Addresses = UserAddressModelsFromDomain(u.ID, u.Addresses)
	return m
}

// UserAddressModelsFromDomain maps a user's address book to rows
func UserAddressModelsFromDomain(userID uuid.UUID, addrs []identity.Address) []UserAddressModel {
	rows := make([]UserAddressModel, len(addrs))
	for i, a := range addrs {
		rows[i] = UserAddressModel{
			ID:        a.ID,
			UserID:    userID,
			Name:      a.Name,
			Phone:     a.Phone,
			Street:    a.Street,
			City:      a.City,
			State:     a.State,
			Pincode:   a.Pincode,
			Landmark:  a.Landmark,
			Type:      string(a.Type),
			IsDefault: a.IsDefault,
			CreatedAt: a.CreatedAt,
		}
	}
	return rows
}
