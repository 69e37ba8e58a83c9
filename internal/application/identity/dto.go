package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/identity"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// SignupInput contains the input for account creation
type SignupInput struct {
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"omitempty,in_phone"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// VerifyEmailInput carries the code mailed to the customer
type VerifyEmailInput struct {
	OTP string `json:"otp" binding:"required,len=6,numeric"`
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// UpdateProfileInput contains editable profile fields
type UpdateProfileInput struct {
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Phone string `json:"phone" binding:"omitempty,in_phone"`
}

// AuthResult is returned by signup and login
type AuthResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        UserInfo  `json:"user"`
}

// UserInfo contains the account as shown to its owner
type UserInfo struct {
	ID            uuid.UUID         `json:"id"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Phone         string            `json:"phone"`
	Role          string            `json:"role"`
	EmailVerified bool              `json:"email_verified"`
	Addresses     []AddressResponse `json:"addresses"`
	CreatedAt     time.Time         `json:"created_at"`
}

// AddressInput is an address book entry as submitted
type AddressInput struct {
	Name      string `json:"name" binding:"required,max=100"`
	Phone     string `json:"phone" binding:"required,in_phone"`
	Street    string `json:"street" binding:"required,max=300"`
	City      string `json:"city" binding:"required,max=100"`
	State     string `json:"state" binding:"required,max=100"`
	Pincode   string `json:"pincode" binding:"required,pincode"`
	Landmark  string `json:"landmark" binding:"max=200"`
	Type      string `json:"type" binding:"omitempty,oneof=home work other"`
	IsDefault bool   `json:"is_default"`
}

// PostalAddress converts the input to the value object
func (in AddressInput) PostalAddress() valueobject.PostalAddress {
	return valueobject.PostalAddress{
		Name:     in.Name,
		Phone:    in.Phone,
		Street:   in.Street,
		City:     in.City,
		State:    in.State,
		Pincode:  in.Pincode,
		Landmark: in.Landmark,
		Type:     valueobject.AddressType(in.Type),
	}
}

// AddressResponse is an address book entry
type AddressResponse struct {
	ID uuid.UUID `json:"id"`
	valueobject.PostalAddress
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// ToUserInfo converts a domain user
func ToUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		Addresses:     ToAddressResponses(u.Addresses),
		CreatedAt:     u.CreatedAt,
	}
}

// ToAddressResponses converts an address book
func ToAddressResponses(addrs []identity.Address) []AddressResponse {
	out := make([]AddressResponse, len(addrs))
	for i, a := range addrs {
		out[i] = AddressResponse{ID: a.ID, PostalAddress: a.PostalAddress, IsDefault: a.IsDefault, CreatedAt: a.CreatedAt}
	}
	return out
}
