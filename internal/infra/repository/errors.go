package repository

import (
	"errors"
	"fmt"
	"strings"

	domainrepo "hoponhopoff/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// postgresの一意制約違反
const pgUniqueViolation = "23505"

// 一意制約違反かどうか。
// TranslateError有効なら gorm.ErrDuplicatedKey、無効でもpgconn/sqliteのエラーを見る。
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Create系のエラーをドメインのエラーに寄せる
func translateWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if isDuplicate(err) {
		return fmt.Errorf("%w: %v", domainrepo.ErrDuplicate, err)
	}
	return err
}
