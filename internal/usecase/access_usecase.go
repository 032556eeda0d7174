package usecase

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/infrastructure/metrics"
)

// AccessUseCase resolves and manages the roles actors hold on accounts.
type AccessUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	actorRepo   ActorRepository
	grantRepo   GrantRepository
	outbox      outbox
	idGen       IDGenerator
	metrics     *metrics.Metrics
}

// NewAccessUseCase creates a new AccessUseCase.
func NewAccessUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	actorRepo ActorRepository,
	grantRepo GrantRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *AccessUseCase {
	return &AccessUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		actorRepo:   actorRepo,
		grantRepo:   grantRepo,
		outbox:      outbox{repo: outboxRepo, idGen: idGen},
		idGen:       idGen,
		metrics:     metrics,
	}
}

// HasAccess reports whether the actor holds any active role on the account.
func (uc *AccessUseCase) HasAccess(ctx context.Context, accountID, actorID string) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	grants, err := uc.grantRepo.ListActive(ctx, nil, accountID, actorID)
	if err != nil {
		return false, err
	}
	return len(grants) > 0, nil
}

// HasRole reports whether the actor holds an active role among allowed.
func (uc *AccessUseCase) HasRole(ctx context.Context, accountID, actorID string, allowed ...domain.Role) (bool, error) {
	return uc.hasRole(ctx, nil, accountID, actorID, allowed)
}

// Authorize returns ErrAccessDenied unless the actor holds a role carrying
// the permission.
func (uc *AccessUseCase) Authorize(ctx context.Context, accountID, actorID string, permission domain.Permission) error {
	return uc.authorize(ctx, nil, accountID, actorID, permission)
}

// Roles returns the active roles the actor holds on the account.
func (uc *AccessUseCase) Roles(ctx context.Context, accountID, actorID string) ([]domain.Role, error) {
	if actorID == "" {
		return nil, nil
	}
	grants, err := uc.grantRepo.ListActive(ctx, nil, accountID, actorID)
	if err != nil {
		return nil, err
	}
	roles := make([]domain.Role, 0, len(grants))
	for _, g := range grants {
		roles = append(roles, g.Role)
	}
	return roles, nil
}

// ListGrants returns the active grants on an account.
func (uc *AccessUseCase) ListGrants(ctx context.Context, accountID string) ([]*domain.RoleGrant, error) {
	if _, err := uc.accountRepo.GetByID(ctx, accountID); err != nil {
		return nil, err
	}
	return uc.grantRepo.ListActive(ctx, nil, accountID, "")
}

func (uc *AccessUseCase) hasRole(ctx context.Context, tx Transaction, accountID, actorID string, allowed []domain.Role) (bool, error) {
	if actorID == "" {
		return false, nil
	}

	grants, err := uc.grantRepo.ListActive(ctx, tx, accountID, actorID)
	if err != nil {
		return false, err
	}

	for _, g := range grants {
		for _, r := range allowed {
			if g.Role == r {
				return true, nil
			}
		}
	}

	return false, nil
}

// authorize checks the permission through tx so the answer is consistent
// with the rows the caller has locked.
func (uc *AccessUseCase) authorize(ctx context.Context, tx Transaction, accountID, actorID string, permission domain.Permission) error {
	ok, err := uc.hasRole(ctx, tx, accountID, actorID, domain.RolesFor(permission))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: actor %q lacks %s on account %s", domain.ErrAccessDenied, actorID, permission, accountID)
	}
	return nil
}

// Grant gives the actor a role on the account.
func (uc *AccessUseCase) Grant(ctx context.Context, accountID, actorID string, role domain.Role) (*domain.RoleGrant, error) {
	ctx, span := tracer.Start(ctx, "AccessUseCase.Grant", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.String("grant.role", string(role)),
	))
	defer span.End()

	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Grants on one account are serialized by the account row lock.
	account, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Status == domain.AccountStatusClosed {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountClosed, accountID)
	}

	grant, err := uc.grantInTx(txCtx, tx, accountID, actorID, role, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.GrantChanges.WithLabelValues("grant").Inc()
	}

	return grant, nil
}

func (uc *AccessUseCase) grantInTx(ctx context.Context, tx Transaction, accountID, actorID string, role domain.Role, now time.Time) (*domain.RoleGrant, error) {
	if _, err := uc.actorRepo.GetByID(ctx, tx, actorID); err != nil {
		return nil, err
	}

	existing, err := uc.grantRepo.ListActive(ctx, tx, accountID, actorID)
	if err != nil {
		return nil, err
	}
	for _, g := range existing {
		if g.Role == role {
			return nil, fmt.Errorf("%w: %s already holds %s", domain.ErrDuplicateGrant, actorID, role)
		}
	}

	grant := &domain.RoleGrant{
		ID:        uc.idGen.Generate(),
		AccountID: accountID,
		ActorID:   actorID,
		Role:      role,
		Active:    true,
		StartedAt: now,
	}
	if err := uc.grantRepo.Create(ctx, tx, grant); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"grant_id":   grant.ID,
		"account_id": accountID,
		"actor_id":   actorID,
		"role":       string(role),
	}
	if err := uc.outbox.emit(ctx, tx, domain.AggregateTypeGrant, grant.ID, domain.EventTypeGrantCreated, payload, now); err != nil {
		return nil, err
	}

	return grant, nil
}

// Revoke deactivates a grant. The last active primary holder of an account
// cannot be revoked.
func (uc *AccessUseCase) Revoke(ctx context.Context, grantID string) (*domain.RoleGrant, error) {
	ctx, span := tracer.Start(ctx, "AccessUseCase.Revoke", trace.WithAttributes(attribute.String("grant.id", grantID)))
	defer span.End()

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	grant, err := uc.grantRepo.GetByID(txCtx, tx, grantID)
	if err != nil {
		return nil, err
	}

	if _, err := uc.accountRepo.GetByIDForUpdate(txCtx, tx, grant.AccountID); err != nil {
		return nil, err
	}

	// Re-read under the account lock.
	grant, err = uc.grantRepo.GetByID(txCtx, tx, grantID)
	if err != nil {
		return nil, err
	}
	if !grant.Active {
		return nil, fmt.Errorf("%w: %s", domain.ErrGrantInactive, grantID)
	}

	if grant.Role == domain.RolePrimaryHolder {
		if err := uc.ensureAnotherPrimary(txCtx, tx, grant); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err := grant.Revoke(now); err != nil {
		return nil, err
	}
	if err := uc.grantRepo.Deactivate(txCtx, tx, grant); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"grant_id":   grant.ID,
		"account_id": grant.AccountID,
		"actor_id":   grant.ActorID,
		"role":       string(grant.Role),
	}
	if err := uc.outbox.emit(txCtx, tx, domain.AggregateTypeGrant, grant.ID, domain.EventTypeGrantRevoked, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.GrantChanges.WithLabelValues("revoke").Inc()
	}

	return grant, nil
}

func (uc *AccessUseCase) ensureAnotherPrimary(ctx context.Context, tx Transaction, grant *domain.RoleGrant) error {
	active, err := uc.grantRepo.ListActive(ctx, tx, grant.AccountID, "")
	if err != nil {
		return err
	}

	for _, g := range active {
		if g.ID != grant.ID && g.Role == domain.RolePrimaryHolder {
			return nil
		}
	}

	return fmt.Errorf("%w: account %s", domain.ErrLastPrimaryHolder, grant.AccountID)
}
