package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hoponhopoff/internal/config"
	"hoponhopoff/internal/handler"
	"hoponhopoff/internal/infra/db"
	"hoponhopoff/internal/infra/mail"
	infraRepo "hoponhopoff/internal/infra/repository"
	"hoponhopoff/internal/logging"
	"hoponhopoff/internal/server"
	auth "hoponhopoff/internal/usecase/auth_usecase"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	//.envは無くてもよい（本番は環境変数）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	profileRepo := infraRepo.NewProfileGormRepository(gormDB)
	accessRepo := infraRepo.NewAccessTokenRepository(gormDB)
	refreshRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	resetRepo := infraRepo.NewPasswordResetTokenRepository(gormDB)
	permRepo := infraRepo.NewPermissionGormRepository(gormDB)
	roleRepo := infraRepo.NewRoleGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//メール送信
	notifier, err := mail.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logger.Error("mail notifier close failed", "error", err)
		}
	}()

	//usecaseに渡す部品
	clock := auth.SystemClock{}
	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	verifier := auth.NewBcryptPasswordVerifier()
	ttl := auth.TokenTTL{
		Access:  cfg.AccessTokenTTL,
		Refresh: cfg.RefreshTokenTTL,
		Reset:   cfg.PasswordResetTokenTTL,
	}

	//Usecase生成
	issuer := auth.NewTokenIssuer(userRepo, accessRepo, refreshRepo, resetRepo, txm, auth.NewHexKeyGenerator(), clock, ttl)
	authenticator := auth.NewAuthenticator(cfg.AuthKeyword, userRepo, accessRepo, clock, cfg.AccessTokenTTL)
	resolver := auth.NewPermissionResolver(permRepo)
	session := auth.NewSessionUsecase(auth.SessionDeps{
		Users:            userRepo,
		Profiles:         profileRepo,
		Resets:           resetRepo,
		Perms:            permRepo,
		Tx:               txm,
		Issuer:           issuer,
		Hasher:           hasher,
		Verifier:         verifier,
		Notifier:         notifier,
		Clock:            clock,
		Logger:           logger,
		PasswordResetURL: cfg.PasswordResetURL,
	})
	rbac := auth.NewRBACUsecase(roleRepo, userRepo, resolver, logger)

	//初期データ
	if cfg.SeedDefaults {
		seeder := auth.NewSeeder(roleRepo, userRepo, txm, hasher, clock, logger)
		admin := auth.AdminAccount{Username: cfg.AdminUsername, Email: cfg.AdminEmail, Password: cfg.AdminPassword}
		if err := seeder.Run(ctx, admin); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	//Handler生成
	authH := handler.NewAuthHandler(session, resolver, authenticator)
	adminH := handler.NewAdminHandler(rbac, authenticator, resolver)

	//Server起動
	e := server.New(logger, authH, adminH)
	return server.Run(ctx, e, cfg.Addr(), logger)
}
