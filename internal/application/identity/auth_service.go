package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/identity"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/infrastructure/auth"
	"github.com/wellnest/backend/internal/infrastructure/mail"
	"go.uber.org/zap"
)

// ErrEmailTaken is returned when signing up with a registered email
var ErrEmailTaken = shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")

// AuthService handles signup, login and email verification
type AuthService struct {
	userRepo    identity.UserRepository
	jwtService  *auth.JWTService
	revocations auth.Revocations
	mailer      mail.Mailer
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	revocations auth.Revocations,
	mailer mail.Mailer,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = mail.NewLogMailer(logger)
	}
	return &AuthService{
		userRepo:    userRepo,
		jwtService:  jwtService,
		revocations: revocations,
		mailer:      mailer,
		logger:      logger,
		now:         time.Now,
	}
}

// Signup creates an unverified customer, mails a verification code and
// returns an access token
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	user, err := identity.NewUser(input.Name, input.Email, input.Phone, input.Password)
	if err != nil {
		return nil, err
	}
	code, err := user.IssueEmailOTP(s.now())
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User signed up", zap.String("user_id", user.ID.String()))

	// the account exists either way; the customer can ask for a new code
	if err := s.sendOTP(ctx, user, code); err != nil {
		s.logger.Warn("Failed to send verification mail", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return s.issue(user)
}

// Login authenticates by email and password
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login for unknown email")
			return nil, identity.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, identity.ErrInvalidCredentials
	}

	user.RecordLogin(s.now())
	if err := s.userRepo.Update(ctx, user); err != nil {
		// Don't fail the login - just log the error
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}

	s.logger.Info("User logged in successfully", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

// VerifyEmail checks the mailed code and marks the email verified
func (s *AuthService) VerifyEmail(ctx context.Context, userID uuid.UUID, input VerifyEmailInput) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.VerifyEmailOTP(input.OTP, s.now()); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// ResendOTP issues a fresh code, invalidating the previous one
func (s *AuthService) ResendOTP(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	code, err := user.IssueEmailOTP(s.now())
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	if err := s.sendOTP(ctx, user, code); err != nil {
		s.logger.Error("Failed to send verification mail", zap.String("user_id", user.ID.String()), zap.Error(err))
		return shared.WrapDomainError(shared.ErrExternalUnavailable.Code, "Could not send the verification mail", err)
	}
	return nil
}

// Me returns the caller's account with its address book
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// UpdateProfile changes name and phone
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserInfo, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := user.UpdateProfile(input.Name, input.Phone); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	info := ToUserInfo(user)
	return &info, nil
}

// ChangePassword replaces the password and revokes every token issued so far
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.ChangePassword(input.OldPassword, input.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	if s.revocations != nil {
		if err := s.revocations.RevokeUser(ctx, userID.String(), s.jwtService.Lifetime()); err != nil {
			s.logger.Error("Failed to revoke tokens after password change", zap.Error(err))
		}
	}
	return nil
}

// Logout revokes one token for the rest of its lifetime
func (s *AuthService) Logout(ctx context.Context, jti string, remaining time.Duration) error {
	if s.revocations == nil || jti == "" || remaining <= 0 {
		return nil
	}
	return s.revocations.Revoke(ctx, jti, remaining)
}

func (s *AuthService) issue(user *identity.User) (*AuthResult, error) {
	token, err := s.jwtService.Issue(auth.Subject{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication token")
	}
	return &AuthResult{
		AccessToken: token.Token,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
		User:        ToUserInfo(user),
	}, nil
}

func (s *AuthService) sendOTP(ctx context.Context, user *identity.User, code string) error {
	body := fmt.Sprintf("Hi %s,\n\nYour Wellnest verification code is %s. It expires in %d minutes.\n\nIf you did not sign up, ignore this mail.\n",
		user.Name, code, int(identity.EmailOTPTTL/time.Minute))
	return s.mailer.Send(ctx, user.Email, "Verify your email", body)
}
