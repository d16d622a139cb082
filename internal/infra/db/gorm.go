package db

import (
	"fmt"

	"hoponhopoff/internal/config"
	"hoponhopoff/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
// TranslateErrorで一意制約違反を gorm.ErrDuplicatedKey に寄せる。
func Connect(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{TranslateError: true}
	if cfg.GoEnv != "dev" {
		gcfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), gcfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return gdb, nil
}

// 認証まわりのテーブルを作る
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&model.User{},
		&model.Profile{},
		&model.AccessToken{},
		&model.RefreshToken{},
		&model.PasswordResetToken{},
		&model.Role{},
		&model.Permission{},
		&model.RolePermission{},
		&model.UserPermission{},
		&model.UserRole{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
