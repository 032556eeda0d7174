package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

const accountColumns = `a.id, a.number, a.type, a.currency, a.total_balance, a.available_balance,
	a.status, a.version, a.opened_at, a.updated_at, a.closed_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool querier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create inserts a new account. A duplicate number maps to
// domain.ErrAccountNumberTaken.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, number, type, currency, total_balance, available_balance,
			status, version, opened_at, updated_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := conn(r.pool, tx).Exec(ctx, query,
		account.ID,
		account.Number,
		account.Type,
		account.Currency,
		decimalToNumeric(account.TotalBalance),
		decimalToNumeric(account.AvailableBalance),
		string(account.Status),
		account.Version,
		timeToPgTimestamptz(account.OpenedAt),
		timeToPgTimestamptz(account.UpdatedAt),
		timePtrToPgTimestamptz(account.ClosedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrAccountNumberTaken, account.Number)
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = $1`

	return scanAccountRow(r.pool.QueryRow(ctx, query, id), id)
}

// GetByIDForUpdate retrieves and row-locks an account.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = $1 FOR UPDATE`

	return scanAccountRow(conn(r.pool, tx).QueryRow(ctx, query, id), id)
}

// GetByIDsForUpdate locks the accounts in ascending id order so concurrent
// multi-account transactions acquire row locks in the same sequence.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a WHERE a.id = ANY($1) ORDER BY a.id FOR UPDATE`

	rows, err := conn(r.pool, tx).Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}

	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, err
	}

	if len(accounts) != len(uniqueStrings(ids)) {
		return nil, domain.ErrAccountNotFound
	}

	return accounts, nil
}

// ExistsByNumber reports whether an account already uses the number.
func (r *AccountRepository) ExistsByNumber(ctx context.Context, tx usecase.Transaction, number string) (bool, error) {
	var exists bool
	err := conn(r.pool, tx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE number = $1)`, number,
	).Scan(&exists)

	return exists, err
}

// UpdateBalances persists both balances and the version.
func (r *AccountRepository) UpdateBalances(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET total_balance = $2, available_balance = $3, version = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := conn(r.pool, tx).Exec(ctx, query,
		account.ID,
		decimalToNumeric(account.TotalBalance),
		decimalToNumeric(account.AvailableBalance),
		account.Version,
		timeToPgTimestamptz(account.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// UpdateStatus persists the lifecycle status.
func (r *AccountRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	query := `UPDATE accounts SET status = $2, closed_at = $3, updated_at = $4 WHERE id = $1`

	tag, err := conn(r.pool, tx).Exec(ctx, query,
		account.ID,
		string(account.Status),
		timePtrToPgTimestamptz(account.ClosedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// ListByActor lists accounts on which the actor holds an active grant.
func (r *AccountRepository) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		WHERE EXISTS (
			SELECT 1 FROM role_grants g
			WHERE g.account_id = a.id AND g.actor_id = $1 AND g.active
		)
		ORDER BY a.opened_at, a.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, actorID, limit, offset)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

// List lists all accounts.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a ORDER BY a.opened_at, a.id LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}

	return collectAccounts(rows)
}

func scanAccountRow(row pgx.Row, id string) (*domain.Account, error) {
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}

	return account, err
}

func collectAccounts(rows pgx.Rows) ([]*domain.Account, error) {
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account   domain.Account
		status    string
		total     pgtype.Numeric
		available pgtype.Numeric
		openedAt  pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
		closedAt  pgtype.Timestamptz
	)

	err := row.Scan(
		&account.ID,
		&account.Number,
		&account.Type,
		&account.Currency,
		&total,
		&available,
		&status,
		&account.Version,
		&openedAt,
		&updatedAt,
		&closedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Status = domain.AccountStatus(status)
	account.TotalBalance = numericToDecimal(total)
	account.AvailableBalance = numericToDecimal(available)
	account.OpenedAt = openedAt.Time
	account.UpdatedAt = updatedAt.Time
	account.ClosedAt = pgTimestamptzToTimePtr(closedAt)

	return &account, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
