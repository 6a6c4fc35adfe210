package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"movie-trivia-service/internal/domain"
)

const uniqueViolation = "23505"

type accountRow struct {
	bun.BaseModel `bun:"table:accounts"`

	ID           string    `bun:"id,pk"`
	Email        string    `bun:"email,notnull"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{ID: r.ID, Email: r.Email, PasswordHash: r.PasswordHash, CreatedAt: r.CreatedAt}
}

// AccountStore keeps login credentials in the accounts table through bun.
type AccountStore struct {
	db *bun.DB
}

func NewAccountStore(db *bun.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, account domain.Account) error {
	row := accountRow{ID: account.ID, Email: account.Email, PasswordHash: account.PasswordHash, CreatedAt: account.CreatedAt}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *AccountStore) ByEmail(ctx context.Context, email string) (domain.Account, error) {
	return s.one(ctx, "email = ?", email)
}

func (s *AccountStore) ByID(ctx context.Context, id string) (domain.Account, error) {
	return s.one(ctx, "id = ?", id)
}

func (s *AccountStore) one(ctx context.Context, where string, arg any) (domain.Account, error) {
	var row accountRow
	err := s.db.NewSelect().Model(&row).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("load account: %w", err)
	}
	return row.toDomain(), nil
}
