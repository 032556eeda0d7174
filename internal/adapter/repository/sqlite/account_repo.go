package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

const accountColumns = `a.id, a.number, a.type, a.currency, a.total_balance, a.available_balance,
	a.status, a.version, a.opened_at, a.updated_at, a.closed_at`

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	_, err := conn(r.db, tx).ExecContext(ctx,
		`INSERT INTO accounts (id, number, type, currency, total_balance, available_balance,
		   status, version, opened_at, updated_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Number,
		account.Type,
		account.Currency,
		account.TotalBalance.String(),
		account.AvailableBalance.String(),
		string(account.Status),
		account.Version,
		toMillis(account.OpenedAt),
		toMillis(account.UpdatedAt),
		nullMillis(account.ClosedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrAccountNumberTaken, account.Number)
	}
	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.get(ctx, r.db, id)
}

// GetByIDForUpdate reads an account inside the write transaction.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	return r.get(ctx, conn(r.db, tx), id)
}

func (r *AccountRepository) get(ctx context.Context, q querier, id string) (*domain.Account, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.id = ?`, id)
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	return account, err
}

// GetByIDsForUpdate reads the accounts in ascending id order.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	unique := make(map[string]struct{}, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if _, ok := unique[id]; ok {
			continue
		}
		unique[id] = struct{}{}
		args = append(args, id)
	}

	rows, err := conn(r.db, tx).QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts a WHERE a.id IN (`+placeholders(len(args))+`) ORDER BY a.id`,
		args...,
	)
	if err != nil {
		return nil, err
	}

	accounts, err := collectAccounts(rows)
	if err != nil {
		return nil, err
	}
	if len(accounts) != len(args) {
		return nil, domain.ErrAccountNotFound
	}
	return accounts, nil
}

// ExistsByNumber reports whether an account already uses the number.
func (r *AccountRepository) ExistsByNumber(ctx context.Context, tx usecase.Transaction, number string) (bool, error) {
	var exists bool
	err := conn(r.db, tx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE number = ?)`, number,
	).Scan(&exists)
	return exists, err
}

// UpdateBalances persists both balances and the version.
func (r *AccountRepository) UpdateBalances(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	res, err := conn(r.db, tx).ExecContext(ctx,
		`UPDATE accounts SET total_balance = ?, available_balance = ?, version = ?, updated_at = ? WHERE id = ?`,
		account.TotalBalance.String(),
		account.AvailableBalance.String(),
		account.Version,
		toMillis(account.UpdatedAt),
		account.ID,
	)
	return requireAffected(res, err, domain.ErrAccountNotFound)
}

// UpdateStatus persists the lifecycle status.
func (r *AccountRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	res, err := conn(r.db, tx).ExecContext(ctx,
		`UPDATE accounts SET status = ?, closed_at = ?, updated_at = ? WHERE id = ?`,
		string(account.Status),
		nullMillis(account.ClosedAt),
		toMillis(account.UpdatedAt),
		account.ID,
	)
	return requireAffected(res, err, domain.ErrAccountNotFound)
}

// ListByActor lists accounts on which the actor holds an active grant.
func (r *AccountRepository) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+`
		 FROM accounts a
		 WHERE EXISTS (
		   SELECT 1 FROM role_grants g
		   WHERE g.account_id = a.id AND g.actor_id = ? AND g.active = 1
		 )
		 ORDER BY a.opened_at, a.id
		 LIMIT ? OFFSET ?`,
		actorID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// List lists all accounts.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts a ORDER BY a.opened_at, a.id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func collectAccounts(rows *sql.Rows) ([]*domain.Account, error) {
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

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account   domain.Account
		status    string
		total     string
		available string
		openedAt  int64
		updatedAt int64
		closedAt  sql.NullInt64
	)
	if err := row.Scan(
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
	); err != nil {
		return nil, err
	}

	var p decimals
	account.TotalBalance = p.parse("total_balance", total)
	account.AvailableBalance = p.parse("available_balance", available)
	if p.err != nil {
		return nil, p.err
	}
	account.Status = domain.AccountStatus(status)
	account.OpenedAt = fromMillis(openedAt)
	account.UpdatedAt = fromMillis(updatedAt)
	account.ClosedAt = fromNullMillis(closedAt)
	return &account, nil
}

func requireAffected(res sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
