package auth

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"context"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type accounts struct {
	repo repository.Repository[*Account]
	db   *bun.DB
}

var _ Accounts = (*accounts)(nil)

// NewAccountsRepository returns the bun-backed Accounts implementation.
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	return &accounts{
		repo: repo,
		db:   db,
	}
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) || strings.Contains(err.Error(), "no rows") {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"id": id.String(),
			})
		}
		return nil, err
	}
	return record, nil
}

func (a *accounts) GetByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	options := resolveAccountIdentifier(identifier)
	if len(options) == 0 {
		return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
			"identifier": identifier,
		})
	}

	for _, opt := range options {
		record := &Account{}
		err := a.db.NewSelect().
			Model(record).
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if repository.IsRecordNotFound(err) || strings.Contains(err.Error(), "no rows") {
				continue
			}
			return nil, err
		}
		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *accounts) Create(ctx context.Context, account *Account) (*Account, error) {
	prepareAccountDefaults(account)
	return a.repo.Create(ctx, account)
}

// Update persists profile columns only. The refresh token ledger has its
// own write path, SaveRefreshTokens, so a profile save can never clobber
// a concurrent rotation.
func (a *accounts) Update(ctx context.Context, account *Account) (*Account, error) {
	if account == nil || account.ID == uuid.Nil {
		return nil, errors.New("cannot update account without id", errors.CategoryBadInput)
	}

	now := time.Now()
	account.UpdatedAt = &now

	_, err := a.db.NewUpdate().
		Model(account).
		Column("email", "first_name", "last_name", "password_hash", "is_admin", "is_doctor", "active", "updated_at").
		Where("?TableAlias.id = ?", account.ID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return a.GetByID(ctx, account.ID)
}

// SaveRefreshTokens writes the ledger guarded by the version column. The
// update only lands when the row still has the version the account was
// loaded with; zero rows affected means a concurrent writer won and the
// caller must reload before retrying.
func (a *accounts) SaveRefreshTokens(ctx context.Context, account *Account) error {
	if account == nil || account.ID == uuid.Nil {
		return errors.New("cannot save tokens without account id", errors.CategoryBadInput)
	}

	loadedVersion := account.Version
	account.Version = loadedVersion + 1
	now := time.Now()
	account.UpdatedAt = &now

	res, err := a.db.NewUpdate().
		Model(account).
		Column("refresh_tokens", "version", "updated_at").
		Where("?TableAlias.id = ?", account.ID).
		Where("?TableAlias.version = ?", loadedVersion).
		Exec(ctx)
	if err != nil {
		account.Version = loadedVersion
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		account.Version = loadedVersion
		return err
	}

	if affected == 0 {
		account.Version = loadedVersion
		return sentinelWith(ErrVersionConflict, map[string]any{
			"account_id": account.ID.String(),
			"version":    loadedVersion,
		})
	}

	return nil
}

func (a *accounts) Deactivate(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.setActive(ctx, id, false)
}

func (a *accounts) Reactivate(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.setActive(ctx, id, true)
}

func (a *accounts) setActive(ctx context.Context, id uuid.UUID, active bool) (*Account, error) {
	res, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("active = ?", active).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	if affected == 0 {
		return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
			"id": id.String(),
		})
	}

	return a.GetByID(ctx, id)
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Active = true

	if record.RefreshTokens == nil {
		record.RefreshTokens = []RefreshTokenRecord{}
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveAccountIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 2)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
