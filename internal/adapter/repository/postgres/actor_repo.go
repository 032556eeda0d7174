package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// ActorRepository implements actor persistence
type ActorRepository struct {
	pool querier
}

// NewActorRepository creates a new actor repository
func NewActorRepository(pool *pgxpool.Pool) *ActorRepository {
	return &ActorRepository{pool: pool}
}

// Create inserts a new actor
func (r *ActorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	query := `
		INSERT INTO actors (id, display_name, kind, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		actor.ID,
		actor.DisplayName,
		string(actor.Kind),
		actor.Active,
		timeToPgTimestamptz(actor.CreatedAt),
	)

	return err
}

// GetByID retrieves an actor by ID
func (r *ActorRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Actor, error) {
	query := `
		SELECT id, display_name, kind, active, created_at
		FROM actors
		WHERE id = $1
	`

	var (
		actor domain.Actor
		kind  string
	)
	err := conn(r.pool, tx).QueryRow(ctx, query, id).Scan(
		&actor.ID,
		&actor.DisplayName,
		&kind,
		&actor.Active,
		&actor.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrActorNotFound, id)
		}
		return nil, err
	}

	actor.Kind = domain.ActorKind(kind)

	return &actor, nil
}
