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

const grantColumns = `id, account_id, actor_id, role, active, started_at, ended_at`

// GrantRepository implements usecase.GrantRepository.
type GrantRepository struct {
	pool querier
}

// NewGrantRepository creates a new GrantRepository.
func NewGrantRepository(pool *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{pool: pool}
}

// Create inserts a grant. A second active grant of the same role maps to
// domain.ErrDuplicateGrant.
func (r *GrantRepository) Create(ctx context.Context, tx usecase.Transaction, grant *domain.RoleGrant) error {
	query := `
		INSERT INTO role_grants (` + grantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := conn(r.pool, tx).Exec(ctx, query,
		grant.ID,
		grant.AccountID,
		grant.ActorID,
		string(grant.Role),
		grant.Active,
		timeToPgTimestamptz(grant.StartedAt),
		timePtrToPgTimestamptz(grant.EndedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s on %s", domain.ErrDuplicateGrant, grant.Role, grant.AccountID)
	}

	return err
}

// GetByID retrieves a grant by ID.
func (r *GrantRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.RoleGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM role_grants WHERE id = $1`

	grant, err := scanGrant(conn(r.pool, tx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrGrantNotFound, id)
	}

	return grant, err
}

// ListActive returns active grants on the account, for every actor when
// actorID is empty.
func (r *GrantRepository) ListActive(ctx context.Context, tx usecase.Transaction, accountID, actorID string) ([]*domain.RoleGrant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM role_grants
		WHERE account_id = $1 AND active AND ($2 = '' OR actor_id = $2)
		ORDER BY started_at, id
	`

	rows, err := conn(r.pool, tx).Query(ctx, query, accountID, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []*domain.RoleGrant
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}

	return grants, rows.Err()
}

// Deactivate ends a grant.
func (r *GrantRepository) Deactivate(ctx context.Context, tx usecase.Transaction, grant *domain.RoleGrant) error {
	tag, err := conn(r.pool, tx).Exec(ctx,
		`UPDATE role_grants SET active = FALSE, ended_at = $2 WHERE id = $1`,
		grant.ID,
		timePtrToPgTimestamptz(grant.EndedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGrantNotFound
	}

	return nil
}

func scanGrant(row pgx.Row) (*domain.RoleGrant, error) {
	var (
		grant     domain.RoleGrant
		role      string
		startedAt pgtype.Timestamptz
		endedAt   pgtype.Timestamptz
	)

	err := row.Scan(
		&grant.ID,
		&grant.AccountID,
		&grant.ActorID,
		&role,
		&grant.Active,
		&startedAt,
		&endedAt,
	)
	if err != nil {
		return nil, err
	}

	grant.Role = domain.Role(role)
	grant.StartedAt = startedAt.Time
	grant.EndedAt = pgTimestamptzToTimePtr(endedAt)

	return &grant, nil
}
