package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"hoponhopoff/internal/domain/model"
	"hoponhopoff/internal/infra/db"
	infrarepo "hoponhopoff/internal/infra/repository"
	"hoponhopoff/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testTTL = TokenTTL{
	Access:  time.Hour,
	Refresh: 24 * time.Hour,
	Reset:   15 * time.Minute,
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendTemplatedEmail(ctx context.Context, to string, template string, data map[string]any) error {
	args := m.Called(ctx, to, template, data)
	return args.Error(0)
}

type testEnv struct {
	db       *gorm.DB
	clock    *fixedClock
	hasher   *BcryptPasswordHasher
	notifier *mockNotifier

	users    repository.UserRepository
	access   repository.AccessTokenRepository
	refresh  repository.RefreshTokenRepository
	resets   repository.PasswordResetTokenRepository
	roles    repository.RoleRepository
	perms    repository.PermissionRepository
	profiles repository.ProfileRepository

	issuer   *TokenIssuer
	auth     *Authenticator
	resolver *PermissionResolver
	session  *SessionUsecase
	deps     SessionDeps
	rbac     *RBACUsecase
	seeder   *Seeder
}

func newTestEnv(t *testing.T) *testEnv {
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

	e := &testEnv{
		db:       gdb,
		clock:    &fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		hasher:   NewBcryptPasswordHasher(bcrypt.MinCost),
		notifier: &mockNotifier{},
		users:    infrarepo.NewUserGormRepository(gdb),
		access:   infrarepo.NewAccessTokenRepository(gdb),
		refresh:  infrarepo.NewRefreshTokenRepository(gdb),
		resets:   infrarepo.NewPasswordResetTokenRepository(gdb),
		roles:    infrarepo.NewRoleGormRepository(gdb),
		perms:    infrarepo.NewPermissionGormRepository(gdb),
		profiles: infrarepo.NewProfileGormRepository(gdb),
	}
	tx := infrarepo.NewTxManagerGorm(gdb)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	e.issuer = NewTokenIssuer(e.users, e.access, e.refresh, e.resets, tx, NewHexKeyGenerator(), e.clock, testTTL)
	e.auth = NewAuthenticator("Token", e.users, e.access, e.clock, testTTL.Access)
	e.resolver = NewPermissionResolver(e.perms)
	e.deps = SessionDeps{
		Users:            e.users,
		Profiles:         e.profiles,
		Resets:           e.resets,
		Perms:            e.perms,
		Tx:               tx,
		Issuer:           e.issuer,
		Hasher:           e.hasher,
		Verifier:         NewBcryptPasswordVerifier(),
		Notifier:         e.notifier,
		Clock:            e.clock,
		Logger:           quiet,
		PasswordResetURL: "https://tours.example.com/reset-password",
	}
	e.session = NewSessionUsecase(e.deps)
	e.rbac = NewRBACUsecase(e.roles, e.users, e.resolver, quiet)
	e.seeder = NewSeeder(e.roles, e.users, tx, e.hasher, e.clock, quiet)
	return e
}

func (e *testEnv) createUser(t *testing.T, username string, password string, active bool) *model.User {
	t.Helper()

	hashed, err := e.hasher.Hash(password)
	require.NoError(t, err)
	u := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hashed,
		IsActive:     active,
		CreatedAt:    e.clock.Now(),
		UpdatedAt:    e.clock.Now(),
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	require.NoError(t, e.profiles.Create(context.Background(), &model.Profile{UserID: u.ID}))
	return u
}

func (e *testEnv) createRole(t *testing.T, code string, permCodes ...string) *model.Role {
	t.Helper()
	ctx := context.Background()

	role, err := e.rbac.CreateRole(ctx, CreateRoleInput{Name: code, Code: code})
	require.NoError(t, err)
	for _, pc := range permCodes {
		e.ensurePermission(t, pc)
		require.NoError(t, e.rbac.GrantRolePermission(ctx, code, pc))
	}
	return role
}

func (e *testEnv) ensurePermission(t *testing.T, code string) *model.Permission {
	t.Helper()
	ctx := context.Background()

	if p, ok, err := e.roles.FindPermissionByCode(ctx, code); err == nil && ok {
		return p
	}
	p, err := e.rbac.CreatePermission(ctx, CreatePermissionInput{Name: code, Code: code, Module: "test", Action: code})
	require.NoError(t, err)
	return p
}
