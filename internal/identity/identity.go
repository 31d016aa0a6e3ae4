// Package identity is the password and session-token identity provider. It
// owns the accounts table and runs in definer context: it is the only code
// that creates accounts and bootstraps their profile and student role.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-complaints/auth"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotFound    = errors.New("account not found")
)

const minPasswordLen = 8

// SignUpInput is the sign-up form. FullName is optional metadata copied into the profile.
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (in SignUpInput) validate() error {
	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	if _, ok := v["email"]; !ok {
		validation.Email("email", in.Email, v)
	}
	validation.MaxLen("email", in.Email, 255, v)
	validation.MinLen("password", in.Password, minPasswordLen, v)
	validation.MaxLen("password", in.Password, 72, v)
	validation.MaxLen("full_name", in.FullName, 255, v)
	return v.Err()
}

// Service manages accounts.
type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	hashCost int
	now      func() time.Time
}

func New(db *gorm.DB, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, log: log.Named("identity"), hashCost: bcrypt.DefaultCost, now: time.Now}
}

// SetHashCost overrides the bcrypt cost, mainly to keep tests fast.
func (s *Service) SetHashCost(cost int) { s.hashCost = cost }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates the account, its profile and its student role in one
// transaction. If any of the three fails nothing is persisted.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.Account, error) {
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := models.Account{Email: in.Email, PasswordHash: string(hash)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Account{}).Where("email = ?", in.Email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&account).Error; err != nil {
			// a concurrent sign-up won the unique index after our count
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create account: %w", err)
		}
		if err := tx.Create(&models.Profile{ID: account.ID, FullName: in.FullName}).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if err := tx.Create(&models.UserRole{AccountID: account.ID, Role: models.RoleStudent}).Error; err != nil {
			return fmt.Errorf("assign student role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("account created", zap.String("account_id", account.ID))
	return &account, nil
}

// SignIn checks the credentials. Unknown email and wrong password are not distinguished.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &account, nil
}

// SignOut revokes the session's token until it expires.
func (s *Service) SignOut(ctx context.Context, session auth.Session) error {
	if session.TokenID == "" {
		return nil
	}
	rt := models.RevokedToken{TokenID: session.TokenID, AccountID: session.AccountID, ExpiresAt: session.ExpiresAt}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rt).Error
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Verify reports whether a parsed session still names an existing account
// and has not been signed out. It is installed as the auth.Manager verifier.
func (s *Service) Verify(ctx context.Context, session auth.Session) bool {
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Account{}).Where("id = ?", session.AccountID).Count(&n).Error; err != nil || n == 0 {
		return false
	}
	if err := db.Model(&models.RevokedToken{}).Where("token_id = ?", session.TokenID).Count(&n).Error; err != nil {
		s.log.Warn("revocation lookup failed", zap.Error(err))
		return false
	}
	return n == 0
}

// PruneRevoked drops revocations whose token has expired anyway.
func (s *Service) PruneRevoked(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}

func (s *Service) Account(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return &account, nil
}

func (s *Service) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return &account, nil
}

// DeleteAccount removes the account and everything it owns: profile, roles,
// complaints with their attachments, history and notes, plus the history
// entries and notes it authored. Assignments to it are cleared. It returns the
// storage paths of the removed attachments so the caller can delete the blobs.
func (s *Service) DeleteAccount(ctx context.Context, id string) ([]string, error) {
	var paths []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.First(&account, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}
		var owned []string
		if err := tx.Model(&models.Complaint{}).Where("owner_id = ?", id).Pluck("id", &owned).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Attachment{}).Where("complaint_id IN ?", owned).Pluck("storage_path", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("complaint_id IN ?", owned).Delete(&models.Attachment{}).Error; err != nil {
			return fmt.Errorf("delete attachments: %w", err)
		}
		if err := tx.Where("complaint_id IN ? OR changed_by = ?", owned, id).Delete(&models.StatusHistory{}).Error; err != nil {
			return fmt.Errorf("delete status history: %w", err)
		}
		if err := tx.Where("complaint_id IN ? OR admin_id = ?", owned, id).Delete(&models.AdminNote{}).Error; err != nil {
			return fmt.Errorf("delete admin notes: %w", err)
		}
		if err := tx.Where("owner_id = ?", id).Delete(&models.Complaint{}).Error; err != nil {
			return fmt.Errorf("delete complaints: %w", err)
		}
		if err := tx.Model(&models.Complaint{}).Where("assigned_to = ?", id).UpdateColumn("assigned_to", nil).Error; err != nil {
			return fmt.Errorf("clear assignments: %w", err)
		}
		for _, m := range []any{&models.UserRole{}, &models.RevokedToken{}} {
			if err := tx.Where("account_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("delete %T: %w", m, err)
			}
		}
		if err := tx.Delete(&models.Profile{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		return tx.Delete(&account).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("account deleted", zap.String("account_id", id), zap.Int("attachments", len(paths)))
	return paths, nil
}
