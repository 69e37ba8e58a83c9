package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wellnest/backend/internal/domain/identity"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/infrastructure/persistence/models"
)

var errEmailTaken = shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

// Create inserts the account and its address book.
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	return translate(conn(ctx, r.db).Create(models.UserModelFromDomain(user)).Error, errEmailTaken)
}

// Update writes the account under the version check and replaces the address
// book wholesale. Old rows go first so the one-default index never sees two
// defaults.
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	now := time.Now()
	row := models.UserModelFromDomain(user)
	err := inTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := updateVersion(tx, &models.UserModel{}, user.ID, user.Version, map[string]any{
			"name":                 row.Name,
			"phone":                row.Phone,
			"password_hash":        row.PasswordHash,
			"role":                 row.Role,
			"email_verified":       row.EmailVerified,
			"email_otp_hash":       row.EmailOTPHash,
			"email_otp_expires_at": row.EmailOTPExpiresAt,
			"last_login_at":        row.LastLoginAt,
			"updated_at":           now,
		}); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserAddressModel{}).Error; err != nil {
			return err
		}
		if len(row.Addresses) == 0 {
			return nil
		}
		return tx.Create(&row.Addresses).Error
	})
	if err != nil {
		return err
	}
	user.Version++
	user.Touch(now)
	return nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return findOne(r.withAddresses(ctx), (*models.UserModel).ToDomain, "id = ?", id)
}

// FindByEmail ignores case and surrounding blanks.
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	return findOne(r.withAddresses(ctx), (*models.UserModel).ToDomain, "email = ?", normalizeEmail(email))
}

func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&models.UserModel{}).Where("email = ?", normalizeEmail(email)).Count(&n).Error
	return n > 0, err
}

func (r *GormUserRepository) withAddresses(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).Preload("Addresses", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
