package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/anonbox/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, handle, contact_address, credential_hash, verified,
	accepting_messages, pending_code, pending_code_expires_at, created_at, updated_at`

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (
			handle, contact_address, credential_hash, verified,
			accepting_messages, pending_code, pending_code_expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + accountColumns

	row := r.pool.QueryRow(ctx, query,
		a.Handle,
		a.ContactAddress,
		a.CredentialHash,
		a.Verified,
		a.AcceptingMessages,
		a.PendingCode,
		a.PendingCodeExpiry,
	)

	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "accounts_contact_address_key" {
				return nil, domain.ErrDuplicateAddress
			}
			return nil, domain.ErrDuplicateHandle
		}
		return nil, err
	}
	return created, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *AccountRepository) FindByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE handle = $1`, handle)
	return scanAccount(row)
}

func (r *AccountRepository) FindByContactAddress(ctx context.Context, contactAddress string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE contact_address = $1`, contactAddress)
	return scanAccount(row)
}

func (r *AccountRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE handle = $1)`, handle,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check handle: %w", err)
	}
	return exists, nil
}

// MarkVerified flips verified only if it is still false, so concurrent
// redemptions promote an account at most once.
func (r *AccountRepository) MarkVerified(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET    verified                = TRUE,
		       pending_code            = NULL,
		       pending_code_expires_at = NULL,
		       updated_at              = NOW()
		WHERE  id = $1 AND verified = FALSE
		RETURNING ` + accountColumns

	a, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, domain.ErrAccountNotFound) {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, domain.ErrAlreadyVerified
	}
	return a, err
}

func (r *AccountRepository) SetAcceptingMessages(ctx context.Context, id string, accept bool) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET    accepting_messages = $2,
		       updated_at         = NOW()
		WHERE  id = $1
		RETURNING ` + accountColumns

	return scanAccount(r.pool.QueryRow(ctx, query, id, accept))
}

// AppendMessage checks the acceptance flag and inserts in one statement. The row
// lock taken in the CTE makes a concurrent toggle wait for the insert to finish.
func (r *AccountRepository) AppendMessage(ctx context.Context, handle, content string, createdAt time.Time) (*domain.Message, error) {
	query := `
		WITH target AS (
			SELECT id FROM accounts
			WHERE  handle = $1 AND accepting_messages
			FOR SHARE
		)
		INSERT INTO messages (account_id, content, created_at)
		SELECT id, $2, $3 FROM target
		RETURNING content, created_at`

	var m domain.Message
	err := r.pool.QueryRow(ctx, query, handle, content, createdAt).Scan(&m.Content, &m.CreatedAt)
	if err == nil {
		return &m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("append message: %w", err)
	}

	exists, err := r.HandleExists(ctx, handle)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrAccountNotFound
	}
	return nil, domain.ErrNotAccepting
}

func (r *AccountRepository) ListMessages(ctx context.Context, accountID string) ([]domain.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT content, created_at FROM messages
		WHERE account_id = $1
		ORDER BY created_at ASC, id ASC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Handle,
		&a.ContactAddress,
		&a.CredentialHash,
		&a.Verified,
		&a.AcceptingMessages,
		&a.PendingCode,
		&a.PendingCodeExpiry,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}
