package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// CredentialStore persists accounts. Lookups return ErrAccountNotFound when nothing matches.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (Account, error)
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	Create(ctx context.Context, input NewAccount) (Account, error)
	List(ctx context.Context) ([]Account, error)
	UpdateRole(ctx context.Context, id string, role Role) (Account, error)
	UpsertAdmin(ctx context.Context, input NewAccount) (Account, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const accountColumns = `id, username, email, password_hash, role, created_at, updated_at`

func scanAccount(row interface{ Scan(dest ...any) error }) (Account, error) {
	var account Account
	var role string
	err := row.Scan(&account.ID, &account.Username, &account.Email, &account.PasswordHash, &role, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	account.Role = Role(role)
	return account, nil
}

func (r *Repository) findOne(ctx context.Context, label, query string, arg any) (Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("query account by %s: %w", label, err)
	}
	return account, nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (Account, error) {
	return r.findOne(ctx, "username", `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (Account, error) {
	return r.findOne(ctx, "email", `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (r *Repository) FindByID(ctx context.Context, id string) (Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Account{}, ErrAccountNotFound
	}
	return r.findOne(ctx, "id", `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *Repository) Create(ctx context.Context, input NewAccount) (Account, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Account{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()
	account := Account{
		ID:           id.String(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, account.ID, account.Username, account.Email, account.PasswordHash, string(account.Role), now)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicateAccount
		}
		return Account{}, fmt.Errorf("insert account: %w", err)
	}

	return account, nil
}

func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

func (r *Repository) UpdateRole(ctx context.Context, id string, role Role) (Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Account{}, ErrAccountNotFound
	}

	account, err := scanAccount(r.db.QueryRowContext(ctx, `
		UPDATE accounts
		SET role = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+accountColumns,
		id, string(role), time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("update account role: %w", err)
	}

	return account, nil
}

// UpsertAdmin rewrites the oldest admin account with the given credentials, or creates one.
func (r *Repository) UpsertAdmin(ctx context.Context, input NewAccount) (Account, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM accounts
		WHERE role = $1
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE
	`, string(RoleAdmin)).Scan(&existingID)

	var row *sql.Row
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id, idErr := uuid.NewV7()
		if idErr != nil {
			return Account{}, fmt.Errorf("generate uuid v7: %w", idErr)
		}
		row = tx.QueryRowContext(ctx, `
			INSERT INTO accounts (id, username, email, password_hash, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING `+accountColumns,
			id.String(), input.Username, input.Email, input.PasswordHash, string(RoleAdmin), now)
	case err != nil:
		return Account{}, fmt.Errorf("select existing admin: %w", err)
	default:
		row = tx.QueryRowContext(ctx, `
			UPDATE accounts
			SET username = $2, email = $3, password_hash = $4, updated_at = $5
			WHERE id = $1
			RETURNING `+accountColumns,
			existingID, input.Username, input.Email, input.PasswordHash, now)
	}

	account, err := scanAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrDuplicateAccount
		}
		return Account{}, fmt.Errorf("write admin account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Account{}, fmt.Errorf("commit transaction: %w", err)
	}

	return account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
