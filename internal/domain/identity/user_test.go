package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	bcryptCost = bcrypt.MinCost
}

func newTestUser(t *testing.T) *User {
	t.Helper()
	u, err := NewUser("Asha Rao", "Asha@Example.com", "+91 98765 43210", "Password123")
	require.NoError(t, err)
	return u
}

func TestNewUser(t *testing.T) {
	t.Run("creates unverified customer", func(t *testing.T) {
		u := newTestUser(t)
		assert.Equal(t, "asha@example.com", u.Email)
		assert.Equal(t, "9876543210", u.Phone)
		assert.Equal(t, RoleCustomer, u.Role)
		assert.False(t, u.EmailVerified)
		assert.NotEqual(t, "Password123", u.PasswordHash)
		assert.True(t, u.VerifyPassword("Password123"))
		assert.False(t, u.VerifyPassword("wrong"))
	})

	tests := []struct {
		name, userName, email, phone, password, contains string
	}{
		{"empty name", "", "a@b.in", "", "Password123", "Name cannot be empty"},
		{"bad email", "A", "not-an-email", "", "Password123", "Invalid email format"},
		{"bad phone", "A", "a@b.in", "12345", "Password123", "10 digit"},
		{"short password", "A", "a@b.in", "", "Pass1", "at least 8"},
		{"password without digit", "A", "a@b.in", "", "Password", "letter and one number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.userName, tt.email, tt.phone, tt.password)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestUser_ChangePassword(t *testing.T) {
	u := newTestUser(t)
	assert.ErrorIs(t, u.ChangePassword("nope", "NewPassword1"), ErrInvalidCredentials)
	require.NoError(t, u.ChangePassword("Password123", "NewPassword1"))
	assert.True(t, u.VerifyPassword("NewPassword1"))
}

func TestUser_EmailOTP(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("valid code verifies once", func(t *testing.T) {
		u := newTestUser(t)
		code, err := u.IssueEmailOTP(now)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.NotEqual(t, code, u.EmailOTPHash)

		assert.ErrorIs(t, u.VerifyEmailOTP("000000x", now), ErrInvalidOTP)
		require.NoError(t, u.VerifyEmailOTP(code, now.Add(time.Minute)))
		assert.True(t, u.EmailVerified)
		assert.Empty(t, u.EmailOTPHash)

		assert.ErrorIs(t, u.VerifyEmailOTP(code, now), ErrAlreadyVerified)
		_, err = u.IssueEmailOTP(now)
		assert.ErrorIs(t, err, ErrAlreadyVerified)
	})

	t.Run("expired code rejected", func(t *testing.T) {
		u := newTestUser(t)
		code, err := u.IssueEmailOTP(now)
		require.NoError(t, err)
		assert.ErrorIs(t, u.VerifyEmailOTP(code, now.Add(EmailOTPTTL)), ErrInvalidOTP)
		assert.False(t, u.EmailVerified)
	})

	t.Run("reissue invalidates previous code", func(t *testing.T) {
		u := newTestUser(t)
		first, err := u.IssueEmailOTP(now)
		require.NoError(t, err)
		second, err := u.IssueEmailOTP(now)
		require.NoError(t, err)
		if first != second {
			assert.ErrorIs(t, u.VerifyEmailOTP(first, now), ErrInvalidOTP)
		}
		require.NoError(t, u.VerifyEmailOTP(second, now))
	})
}

func TestUser_Roles(t *testing.T) {
	u := newTestUser(t)
	assert.False(t, u.IsAdmin())
	u.PromoteToAdmin()
	assert.True(t, u.IsAdmin())
	assert.True(t, RoleAdmin.IsValid())
	assert.False(t, Role("owner").IsValid())
}
