package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"hoponhopoff/internal/domain/model"
	"hoponhopoff/internal/infra/db"
	domainrepo "hoponhopoff/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// in-memory sqlite。接続を1本にして全クエリが同じDBを見るようにする。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func seedUser(t *testing.T, gdb *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, NewUserGormRepository(gdb).Create(context.Background(), u))
	return u
}

// 指定テーブルへのINSERT直前に1回だけ別の行を差し込む（FindByUserIDの後に割り込まれた状態）
func insertBeforeCreate(t *testing.T, gdb *gorm.DB, table string, query string, args ...any) {
	t.Helper()
	fired := false
	err := gdb.Callback().Create().Before("gorm:create").Register("test:interleave", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context, query, args...)
		require.NoError(t, err)
	})
	require.NoError(t, err)
}

// =====================
// User / Profile
// =====================

func TestUserRepository_FindAndDuplicate(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	users := NewUserGormRepository(gdb)

	u := seedUser(t, gdb, "alice")

	got, ok, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u.ID, got.ID)

	got, ok, err = users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "alice", got.Username)

	// 見つからないのはエラーではない
	_, ok, err = users.FindByID(ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)

	dup := &model.User{Username: "alice", Email: "other@example.com", PasswordHash: "x", IsActive: true}
	err = users.Create(ctx, dup)
	assert.ErrorIs(t, err, domainrepo.ErrDuplicate)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	users := NewUserGormRepository(gdb)
	u := seedUser(t, gdb, "bob")

	require.NoError(t, users.UpdatePassword(ctx, u.ID, "new-hash"))
	got, _, err := users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	assert.ErrorIs(t, users.UpdatePassword(ctx, 404, "h"), domainrepo.ErrUserNotFound)
}

func TestProfileRepository_OnePerUser(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	profiles := NewProfileGormRepository(gdb)
	u := seedUser(t, gdb, "carol")

	require.NoError(t, profiles.Create(ctx, &model.Profile{UserID: u.ID, Country: "VN"}))
	assert.ErrorIs(t, profiles.Create(ctx, &model.Profile{UserID: u.ID}), domainrepo.ErrDuplicate)

	p, ok, err := profiles.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "VN", p.Country)
}

// =====================
// AccessToken
// =====================

func TestAccessTokenRepository_GetOrCreate_ReturnsExisting(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	tokens := NewAccessTokenRepository(gdb)
	u := seedUser(t, gdb, "dave")

	first, created, err := tokens.GetOrCreate(ctx, &model.AccessToken{Key: "key-1", UserID: u.ID, CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "key-1", first.Key)

	// 2回目は新しいkeyを渡しても既存が返る
	second, created, err := tokens.GetOrCreate(ctx, &model.AccessToken{Key: "key-2", UserID: u.ID, CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "key-1", second.Key)

	_, ok, err := tokens.FindByKey(ctx, "key-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessTokenRepository_Delete(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	tokens := NewAccessTokenRepository(gdb)
	u := seedUser(t, gdb, "erin")

	_, _, err := tokens.GetOrCreate(ctx, &model.AccessToken{Key: "k", UserID: u.ID, CreatedAt: time.Now()})
	require.NoError(t, err)

	require.NoError(t, tokens.DeleteByKey(ctx, "k"))
	assert.ErrorIs(t, tokens.DeleteByKey(ctx, "k"), domainrepo.ErrTokenNotFound)
	assert.ErrorIs(t, tokens.DeleteByUserID(ctx, u.ID), domainrepo.ErrTokenNotFound)
}

func TestAccessTokenRepository_GetOrCreate_LosesRace(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	tokens := NewAccessTokenRepository(gdb)
	u := seedUser(t, gdb, "olivia")

	insertBeforeCreate(t, gdb, "authtoken_token",
		`INSERT INTO authtoken_token ("key", user_id, created_at) VALUES (?, ?, ?)`,
		"winner-key", u.ID, time.Now())

	got, created, err := tokens.GetOrCreate(ctx, &model.AccessToken{Key: "loser-key", UserID: u.ID, CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "winner-key", got.Key)

	_, ok, err := tokens.FindByKey(ctx, "loser-key")
	require.NoError(t, err)
	assert.False(t, ok)
}

// =====================
// RefreshToken / PasswordResetToken
// =====================

func TestRefreshTokenRepository_OneToOne(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	tokens := NewRefreshTokenRepository(gdb)
	u := seedUser(t, gdb, "frank")
	now := time.Now()

	first, created, err := tokens.GetOrCreate(ctx, &model.RefreshToken{Key: "r1", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := tokens.GetOrCreate(ctx, &model.RefreshToken{Key: "r2", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	found, ok, err := tokens.FindByKey(ctx, "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, now.Add(time.Hour), found.ExpiresAt, time.Second)

	require.NoError(t, tokens.DeleteByID(ctx, first.ID))
	assert.ErrorIs(t, tokens.DeleteByUserID(ctx, u.ID), domainrepo.ErrTokenNotFound)
}

func TestRefreshTokenRepository_GetOrCreate_LosesRace(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	tokens := NewRefreshTokenRepository(gdb)
	u := seedUser(t, gdb, "peggy")
	now := time.Now()

	insertBeforeCreate(t, gdb, "auth_refresh_token",
		`INSERT INTO auth_refresh_token ("key", user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		"winner-refresh", u.ID, now, now.Add(time.Hour))

	got, created, err := tokens.GetOrCreate(ctx, &model.RefreshToken{Key: "loser-refresh", UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "winner-refresh", got.Key)
	assert.NotZero(t, got.ID)

	_, ok, err := tokens.FindByKey(ctx, "loser-refresh")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordResetTokenRepository_DeleteAllByUserID(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	tokens := NewPasswordResetTokenRepository(gdb)
	u := seedUser(t, gdb, "grace")
	other := seedUser(t, gdb, "heidi")
	now := time.Now()

	for _, tok := range []string{"t1", "t2"} {
		require.NoError(t, tokens.Create(ctx, &model.PasswordResetToken{Token: tok, UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))
	}
	require.NoError(t, tokens.Create(ctx, &model.PasswordResetToken{Token: "t3", UserID: other.ID, CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

	assert.ErrorIs(t,
		tokens.Create(ctx, &model.PasswordResetToken{Token: "t1", UserID: other.ID, CreatedAt: now, ExpiresAt: now}),
		domainrepo.ErrDuplicate,
	)

	n, err := tokens.DeleteAllByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// 0件でもエラーにならない
	n, err = tokens.DeleteAllByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, ok, err := tokens.FindByToken(ctx, "t3")
	require.NoError(t, err)
	assert.True(t, ok)
}

// =====================
// Permission / Role
// =====================

func TestPermissionRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	roles := NewRoleGormRepository(gdb)
	perms := NewPermissionGormRepository(gdb)
	u := seedUser(t, gdb, "ivan")

	role := &model.Role{Name: "Staff", Code: "staff", IsActive: true}
	require.NoError(t, roles.CreateRole(ctx, role))
	view := &model.Permission{Name: "View tour", Code: "view_tour", Module: "tour", Action: "read", IsActive: true}
	export := &model.Permission{Name: "Export", Code: "can_export", Module: "report", Action: "export", IsActive: true}
	require.NoError(t, roles.CreatePermission(ctx, view))
	require.NoError(t, roles.CreatePermission(ctx, export))

	// module+actionの重複
	dup := &model.Permission{Name: "View tour 2", Code: "view_tour_2", Module: "tour", Action: "read"}
	assert.ErrorIs(t, roles.CreatePermission(ctx, dup), domainrepo.ErrDuplicate)

	require.NoError(t, roles.GrantRolePermission(ctx, role.ID, view.ID))
	// 付与済みでもエラーにならない
	require.NoError(t, roles.GrantRolePermission(ctx, role.ID, view.ID))

	_, ok, err := perms.FindUserRole(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, roles.AssignUserRole(ctx, u.ID, role.ID))
	got, ok, err := perms.FindUserRole(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "staff", got.Code)

	has, err := perms.HasRolePermission(ctx, role.ID, "view_tour")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = perms.HasRolePermission(ctx, role.ID, "can_export")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, roles.GrantUserPermission(ctx, u.ID, export.ID))
	has, err = perms.HasUserPermission(ctx, u.ID, "can_export")
	require.NoError(t, err)
	assert.True(t, has)

	codes, err := perms.ListUserPermissionCodes(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"can_export"}, codes)

	require.NoError(t, roles.RevokeUserPermission(ctx, u.ID, export.ID))
	assert.ErrorIs(t, roles.RevokeUserPermission(ctx, u.ID, export.ID), domainrepo.ErrPermissionNotFound)
}

func TestRoleRepository_AssignUserRole_Replaces(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	roles := NewRoleGormRepository(gdb)
	perms := NewPermissionGormRepository(gdb)
	u := seedUser(t, gdb, "judy")

	customer := &model.Role{Name: "Customer", Code: "customer", IsActive: true}
	admin := &model.Role{Name: "Admin", Code: "admin", IsActive: true}
	require.NoError(t, roles.CreateRole(ctx, customer))
	require.NoError(t, roles.CreateRole(ctx, admin))

	require.NoError(t, roles.AssignUserRole(ctx, u.ID, customer.ID))
	require.NoError(t, roles.AssignUserRole(ctx, u.ID, admin.ID))

	got, ok, err := perms.FindUserRole(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "admin", got.Code)

	var n int64
	require.NoError(t, gdb.Model(&model.UserRole{}).Where("user_id = ?", u.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

// =====================
// TxManager
// =====================

func TestTxManager_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	tm := NewTxManagerGorm(gdb)
	u := seedUser(t, gdb, "mallory")

	boom := errors.New("boom")
	err := tm.WithinTx(ctx, func(r domainrepo.TxRepos) error {
		if err := r.Users().UpdatePassword(ctx, u.ID, "changed"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _, err := NewUserGormRepository(gdb).FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.PasswordHash)
}
