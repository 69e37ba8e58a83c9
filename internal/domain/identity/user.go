package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
	"golang.org/x/crypto/bcrypt"
)

// Role separates storefront customers from back-office staff
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is recognised
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Password cost for bcrypt
var bcryptCost = 12

// EmailOTPTTL is how long an email verification code stays valid
const EmailOTPTTL = 10 * time.Minute

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Identity errors
var (
	ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	ErrInvalidOTP         = shared.NewDomainError("INVALID_OTP", "Verification code is invalid or has expired")
	ErrAlreadyVerified    = shared.NewDomainError("ALREADY_VERIFIED", "Email is already verified")
)

// User is a storefront account. It owns the customer's address book
type User struct {
	shared.Aggregate
	Name              string
	Email             string
	Phone             string
	PasswordHash      string
	Role              Role
	EmailVerified     bool
	EmailOTPHash      string
	EmailOTPExpiresAt *time.Time
	LastLoginAt       *time.Time
	Addresses         []Address
}

// NewUser creates an unverified customer account
func NewUser(name, email, phone, password string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot exceed 100 characters")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if phone != "" && !valueobject.ValidMobile(phone) {
		return nil, shared.NewDomainError("INVALID_PHONE", "Phone must be a 10 digit mobile number")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		Aggregate:    shared.NewAggregate(time.Now()),
		Name:         name,
		Email:        email,
		Phone:        valueobject.NormalizePhone(phone),
		PasswordHash: hash,
		Role:         RoleCustomer,
		Addresses:    make([]Address, 0),
	}, nil
}

// VerifyPassword checks a plain-text password against the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword replaces the password after checking the old one
func (u *User) ChangePassword(oldPassword, newPassword string) error {
	if !u.VerifyPassword(oldPassword) {
		return ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	return nil
}

// UpdateProfile changes the display name and phone
func (u *User) UpdateProfile(name, phone string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if phone != "" && !valueobject.ValidMobile(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Phone must be a 10 digit mobile number")
	}
	u.Name = name
	u.Phone = valueobject.NormalizePhone(phone)
	u.UpdatedAt = time.Now()
	return nil
}

// PromoteToAdmin grants back-office access
func (u *User) PromoteToAdmin() {
	u.Role = RoleAdmin
	u.UpdatedAt = time.Now()
}

// IsAdmin reports whether the user may use the back office
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// RecordLogin stamps the last successful login
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
}

// IssueEmailOTP generates a fresh 6 digit code, stores its hash and returns
// the plain code for delivery. Any previous code is invalidated
func (u *User) IssueEmailOTP(now time.Time) (string, error) {
	if u.EmailVerified {
		return "", ErrAlreadyVerified
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())
	expires := now.Add(EmailOTPTTL)
	u.EmailOTPHash = hashOTP(code)
	u.EmailOTPExpiresAt = &expires
	u.UpdatedAt = now
	return code, nil
}

// VerifyEmailOTP marks the email verified when code matches and has not expired.
// A used code cannot be replayed
func (u *User) VerifyEmailOTP(code string, now time.Time) error {
	if u.EmailVerified {
		return ErrAlreadyVerified
	}
	if u.EmailOTPHash == "" || u.EmailOTPExpiresAt == nil || !now.Before(*u.EmailOTPExpiresAt) {
		return ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(hashOTP(strings.TrimSpace(code))), []byte(u.EmailOTPHash)) != 1 {
		return ErrInvalidOTP
	}
	u.EmailVerified = true
	u.EmailOTPHash = ""
	u.EmailOTPExpiresAt = nil
	u.UpdatedAt = now
	return nil
}

func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	hasLetter := strings.ContainsFunc(password, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	})
	hasNumber := strings.ContainsFunc(password, func(r rune) bool { return r >= '0' && r <= '9' })
	if !hasLetter || !hasNumber {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must contain at least one letter and one number")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
