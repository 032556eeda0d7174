package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// ActorRepository implements usecase.ActorRepository.
type ActorRepository struct {
	db *sql.DB
}

// NewActorRepository creates a new ActorRepository.
func NewActorRepository(db *sql.DB) *ActorRepository {
	return &ActorRepository{db: db}
}

// Create inserts a new actor.
func (r *ActorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO actors (id, display_name, kind, active, created_at) VALUES (?, ?, ?, ?, ?)`,
		actor.ID,
		actor.DisplayName,
		string(actor.Kind),
		actor.Active,
		toMillis(actor.CreatedAt),
	)
	return err
}

// GetByID retrieves an actor by ID.
func (r *ActorRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Actor, error) {
	var (
		actor     domain.Actor
		kind      string
		createdAt int64
	)
	err := conn(r.db, tx).QueryRowContext(ctx,
		`SELECT id, display_name, kind, active, created_at FROM actors WHERE id = ?`, id,
	).Scan(&actor.ID, &actor.DisplayName, &kind, &actor.Active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrActorNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	actor.Kind = domain.ActorKind(kind)
	actor.CreatedAt = fromMillis(createdAt)
	return &actor, nil
}

const grantColumns = `id, account_id, actor_id, role, active, started_at, ended_at`

// GrantRepository implements usecase.GrantRepository.
type GrantRepository struct {
	db *sql.DB
}

// NewGrantRepository creates a new GrantRepository.
func NewGrantRepository(db *sql.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Create inserts a grant.
func (r *GrantRepository) Create(ctx context.Context, tx usecase.Transaction, grant *domain.RoleGrant) error {
	_, err := conn(r.db, tx).ExecContext(ctx,
		`INSERT INTO role_grants (`+grantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		grant.ID,
		grant.AccountID,
		grant.ActorID,
		string(grant.Role),
		grant.Active,
		toMillis(grant.StartedAt),
		nullMillis(grant.EndedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s on %s", domain.ErrDuplicateGrant, grant.Role, grant.AccountID)
	}
	return err
}

// GetByID retrieves a grant by ID.
func (r *GrantRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.RoleGrant, error) {
	grant, err := scanGrant(conn(r.db, tx).QueryRowContext(ctx,
		`SELECT `+grantColumns+` FROM role_grants WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrGrantNotFound, id)
	}
	return grant, err
}

// ListActive returns active grants on the account, for every actor when
// actorID is empty.
func (r *GrantRepository) ListActive(ctx context.Context, tx usecase.Transaction, accountID, actorID string) ([]*domain.RoleGrant, error) {
	rows, err := conn(r.db, tx).QueryContext(ctx,
		`SELECT `+grantColumns+`
		 FROM role_grants
		 WHERE account_id = ? AND active = 1 AND (? = '' OR actor_id = ?)
		 ORDER BY started_at, id`,
		accountID, actorID, actorID,
	)
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
	res, err := conn(r.db, tx).ExecContext(ctx,
		`UPDATE role_grants SET active = 0, ended_at = ? WHERE id = ?`,
		nullMillis(grant.EndedAt),
		grant.ID,
	)
	return requireAffected(res, err, domain.ErrGrantNotFound)
}

func scanGrant(row rowScanner) (*domain.RoleGrant, error) {
	var (
		grant     domain.RoleGrant
		role      string
		startedAt int64
		endedAt   sql.NullInt64
	)
	if err := row.Scan(
		&grant.ID,
		&grant.AccountID,
		&grant.ActorID,
		&role,
		&grant.Active,
		&startedAt,
		&endedAt,
	); err != nil {
		return nil, err
	}
	grant.Role = domain.Role(role)
	grant.StartedAt = fromMillis(startedAt)
	grant.EndedAt = fromNullMillis(endedAt)
	return &grant, nil
}
