package identity_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/diewo77/go-complaints/auth"
	"github.com/diewo77/go-complaints/internal/identity"
	"github.com/diewo77/go-complaints/internal/models"
	"github.com/diewo77/go-complaints/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newService(t *testing.T) (*identity.Service, *gorm.DB) {
	db := setupTestDB(t)
	svc := identity.New(db, nil)
	svc.SetHashCost(bcrypt.MinCost)
	return svc, db
}

func count(t *testing.T, db *gorm.DB, model any, where string, args ...any) int64 {
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestSignUp_ConcurrentDuplicateEmail(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	// another sign-up lands between the email check and the insert
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:race_account", func(tx *gorm.DB) {
		if tx.Statement.Table != "accounts" {
			return
		}
		err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("INSERT INTO accounts (id, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
				"winner", "race@example.com", "x", time.Now(), time.Now()).Error
		if err != nil {
			_ = tx.AddError(err)
		}
	}))
	t.Cleanup(func() { _ = db.Callback().Create().Remove("test:race_account") })

	_, err := svc.SignUp(ctx, identity.SignUpInput{Email: "race@example.com", Password: "password1"})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestSignUp_BootstrapsProfileAndStudentRole(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	a, err := svc.SignUp(ctx, identity.SignUpInput{Email: " Ada@Example.com ", Password: "password1", FullName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", a.Email)
	assert.NotEqual(t, "password1", a.PasswordHash)

	assert.Equal(t, int64(1), count(t, db, &models.Profile{}, "id = ?", a.ID))
	assert.Equal(t, int64(1), count(t, db, &models.UserRole{}, "account_id = ?", a.ID))
	assert.Equal(t, int64(1), count(t, db, &models.UserRole{}, "account_id = ? AND role = ?", a.ID, models.RoleStudent))

	var p models.Profile
	require.NoError(t, db.First(&p, "id = ?", a.ID).Error)
	assert.Equal(t, "Ada", p.FullName)
}

func TestSignUp_EmptyFullName(t *testing.T) {
	svc, db := newService(t)
	a, err := svc.SignUp(context.Background(), identity.SignUpInput{Email: "b@example.com", Password: "password1"})
	require.NoError(t, err)
	var p models.Profile
	require.NoError(t, db.First(&p, "id = ?", a.ID).Error)
	assert.Empty(t, p.FullName)
}

func TestSignUp_Validation(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.SignUp(context.Background(), identity.SignUpInput{Email: "nope", Password: "short"})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid_email", verr.Violations["email"])
	assert.Equal(t, "too_short", verr.Violations["password"])
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, identity.SignUpInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, identity.SignUpInput{Email: "A@example.com", Password: "password2"})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
	assert.Equal(t, int64(1), count(t, db, &models.Account{}, "1 = 1"))
}

func TestSignUp_AtomicOnFailure(t *testing.T) {
	svc, db := newService(t)
	boom := errors.New("role insert failed")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_role", func(tx *gorm.DB) {
		if tx.Statement.Table == "user_roles" {
			_ = tx.AddError(boom)
		}
	}))

	_, err := svc.SignUp(context.Background(), identity.SignUpInput{Email: "a@example.com", Password: "password1"})
	require.ErrorIs(t, err, boom)

	assert.Zero(t, count(t, db, &models.Account{}, "1 = 1"))
	assert.Zero(t, count(t, db, &models.Profile{}, "1 = 1"))
}

func TestSignIn(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, err := svc.SignUp(ctx, identity.SignUpInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	a, err := svc.SignIn(ctx, "A@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, a.ID)

	_, err = svc.SignIn(ctx, "a@example.com", "wrong-password")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "nobody@example.com", "password1")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestSignOut_RevokesToken(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	a, err := svc.SignUp(ctx, identity.SignUpInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	m := auth.NewManager("secret", time.Hour)
	_, sess, err := m.Issue(a.ID, a.Email)
	require.NoError(t, err)

	assert.True(t, svc.Verify(ctx, sess))
	require.NoError(t, svc.SignOut(ctx, sess))
	require.NoError(t, svc.SignOut(ctx, sess))
	assert.False(t, svc.Verify(ctx, sess))

	assert.False(t, svc.Verify(ctx, auth.Session{AccountID: "ghost", TokenID: "t"}))
}

func TestPruneRevoked(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&models.RevokedToken{TokenID: "old", AccountID: "a", ExpiresAt: time.Now().Add(-time.Hour)}).Error)
	require.NoError(t, db.Create(&models.RevokedToken{TokenID: "live", AccountID: "a", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	n, err := svc.PruneRevoked(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDeleteAccount_Cascades(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	s, err := svc.SignUp(ctx, identity.SignUpInput{Email: "s@example.com", Password: "password1"})
	require.NoError(t, err)
	m, err := svc.SignUp(ctx, identity.SignUpInput{Email: "m@example.com", Password: "password1"})
	require.NoError(t, err)

	mine := models.Complaint{OwnerID: s.ID, Title: "Leak"}
	require.NoError(t, db.Create(&mine).Error)
	theirs := models.Complaint{OwnerID: m.ID, Title: "Noise", AssignedTo: &s.ID}
	require.NoError(t, db.Create(&theirs).Error)
	require.NoError(t, db.Create(&models.Attachment{ComplaintID: mine.ID, FileName: "a.png", StoragePath: "p/a.png", FileURL: "u", MimeType: "image/png"}).Error)
	require.NoError(t, db.Create(&models.StatusHistory{ComplaintID: mine.ID, Status: models.StatusClosed, ChangedBy: m.ID}).Error)
	require.NoError(t, db.Create(&models.StatusHistory{ComplaintID: theirs.ID, Status: models.StatusClosed, ChangedBy: s.ID}).Error)
	require.NoError(t, db.Create(&models.AdminNote{ComplaintID: mine.ID, Note: "n", AdminID: m.ID}).Error)

	paths, err := svc.DeleteAccount(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p/a.png"}, paths)

	assert.Zero(t, count(t, db, &models.Account{}, "id = ?", s.ID))
	assert.Zero(t, count(t, db, &models.Profile{}, "id = ?", s.ID))
	assert.Zero(t, count(t, db, &models.UserRole{}, "account_id = ?", s.ID))
	assert.Zero(t, count(t, db, &models.Complaint{}, "owner_id = ?", s.ID))
	assert.Zero(t, count(t, db, &models.Attachment{}, "1 = 1"))
	assert.Zero(t, count(t, db, &models.StatusHistory{}, "1 = 1"))
	assert.Zero(t, count(t, db, &models.AdminNote{}, "1 = 1"))

	var kept models.Complaint
	require.NoError(t, db.First(&kept, "id = ?", theirs.ID).Error)
	assert.Nil(t, kept.AssignedTo)

	_, err = svc.DeleteAccount(ctx, s.ID)
	assert.ErrorIs(t, err, identity.ErrAccountNotFound)
}

func TestRolesByEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, identity.SignUpInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.GrantRoleByEmail(ctx, "a@example.com", models.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.GrantRoleByEmail(ctx, "a@example.com", models.RoleAdmin)
	require.NoError(t, err)

	roles, err := svc.RolesByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleAdmin, models.RoleStudent}, roles)

	removed, err := svc.RevokeRoleByEmail(ctx, "a@example.com", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = svc.RevokeRoleByEmail(ctx, "a@example.com", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.GrantRoleByEmail(ctx, "nobody@example.com", models.RoleAdmin)
	assert.ErrorIs(t, err, identity.ErrAccountNotFound)
	_, err = svc.GrantRoleByEmail(ctx, "a@example.com", "root")
	assert.ErrorIs(t, err, models.ErrInvalidRole)
}
