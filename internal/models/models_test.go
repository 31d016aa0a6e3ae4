package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(All()...))
	return db
}

func TestEnums_Valid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid(), s)
	}
	for _, p := range Priorities {
		assert.True(t, p.Valid(), p)
	}
	for _, r := range Roles {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, ComplaintStatus("reopened").Valid())
	assert.False(t, ComplaintPriority("critical").Valid())
	assert.False(t, Role("superuser").Valid())
}

func TestComplaint_Validate(t *testing.T) {
	base := func() Complaint {
		return Complaint{OwnerID: "acc-1", Title: "Broken AC", Status: StatusNew, Priority: PriorityHigh}
	}

	tests := []struct {
		name   string
		mutate func(c *Complaint)
		want   error
	}{
		{"valid", func(c *Complaint) {}, nil},
		{"missing owner", func(c *Complaint) { c.OwnerID = "" }, ErrMissingOwner},
		{"blank title", func(c *Complaint) { c.Title = "  " }, ErrMissingTitle},
		{"bad status", func(c *Complaint) { c.Status = "reopened" }, ErrInvalidStatus},
		{"bad priority", func(c *Complaint) { c.Priority = "critical" }, ErrInvalidPriority},
		{"negative upvotes", func(c *Complaint) { c.Upvotes = -1 }, ErrNegativeUpvotes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), tt.want)
		})
	}
}

func TestComplaint_BeforeCreateDefaults(t *testing.T) {
	db := setupTestDB(t)

	c := Complaint{OwnerID: "acc-1", Title: "Broken AC", Category: "Facilities"}
	require.NoError(t, db.Create(&c).Error)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, StatusNew, c.Status)
	assert.Equal(t, PriorityMedium, c.Priority)
	assert.Zero(t, c.Upvotes)
}

func TestComplaint_RejectsInvalidEnum(t *testing.T) {
	db := setupTestDB(t)

	c := Complaint{OwnerID: "acc-1", Title: "x", Status: "reopened"}
	assert.ErrorIs(t, db.Create(&c).Error, ErrInvalidStatus)

	var count int64
	db.Model(&Complaint{}).Count(&count)
	assert.Zero(t, count)
}

func TestComplaint_CheckConstraintRejectsRawInsert(t *testing.T) {
	db := setupTestDB(t)

	err := db.Exec(`INSERT INTO complaints (id, owner_id, title, description, category, status, priority, is_anonymous, upvotes, created_at, updated_at)
		VALUES ('c1', 'acc-1', 't', 'd', 'c', 'bogus', 'low', false, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error
	assert.Error(t, err)
}

func TestComplaint_BeforeUpdateStampsUpdatedAt(t *testing.T) {
	db := setupTestDB(t)

	c := Complaint{OwnerID: "acc-1", Title: "Broken AC"}
	require.NoError(t, db.Create(&c).Error)

	stale := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&Complaint{}).Where("id = ?", c.ID).UpdateColumn("updated_at", stale).Error)

	var loaded Complaint
	require.NoError(t, db.First(&loaded, "id = ?", c.ID).Error)
	loaded.Status = StatusInProgress
	loaded.UpdatedAt = stale
	require.NoError(t, db.Model(&loaded).Select("Status").Updates(&loaded).Error)

	var after Complaint
	require.NoError(t, db.First(&after, "id = ?", c.ID).Error)
	assert.Equal(t, StatusInProgress, after.Status)
	assert.True(t, after.UpdatedAt.After(stale), "updated_at must be refreshed by the hook")
}

func TestProfile_BeforeUpdateStampsUpdatedAt(t *testing.T) {
	db := setupTestDB(t)

	p := Profile{ID: "acc-1", FullName: "Sam"}
	require.NoError(t, db.Create(&p).Error)
	stale := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&Profile{}).Where("id = ?", p.ID).UpdateColumn("updated_at", stale).Error)

	p.Department = "Physics"
	require.NoError(t, db.Model(&p).Select("Department").Updates(&p).Error)

	var after Profile
	require.NoError(t, db.First(&after, "id = ?", p.ID).Error)
	assert.Equal(t, "Physics", after.Department)
	assert.True(t, after.UpdatedAt.After(stale))
}

func TestUserRole_UniquePair(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, db.Create(&UserRole{AccountID: "acc-1", Role: RoleStudent}).Error)
	assert.Error(t, db.Create(&UserRole{AccountID: "acc-1", Role: RoleStudent}).Error)
	require.NoError(t, db.Create(&UserRole{AccountID: "acc-1", Role: RoleAdmin}).Error)

	var count int64
	db.Model(&UserRole{}).Where("account_id = ?", "acc-1").Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestUserRole_RejectsUnknownRole(t *testing.T) {
	db := setupTestDB(t)
	assert.ErrorIs(t, db.Create(&UserRole{AccountID: "acc-1", Role: "root"}).Error, ErrInvalidRole)
}

func TestTableNames(t *testing.T) {
	db := setupTestDB(t)
	for _, table := range []string{"accounts", "profiles", "user_roles", "complaints", "complaint_attachments", "complaint_status_history", "admin_notes"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
