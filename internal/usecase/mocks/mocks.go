package mocks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// Store is the shared in-memory state behind the mock repositories. The mock
// transaction manager snapshots it on Begin and restores it on Rollback.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	actors       map[string]*domain.Actor
	grants       map[string]*domain.RoleGrant
	instruments  map[string]*domain.Instrument
	positions    map[string]*domain.Position
	transactions map[string]*domain.Transaction
	entries      []*domain.Entry
	events       []*domain.OutboxEvent
}

func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*domain.Account),
		actors:       make(map[string]*domain.Actor),
		grants:       make(map[string]*domain.RoleGrant),
		instruments:  make(map[string]*domain.Instrument),
		positions:    make(map[string]*domain.Position),
		transactions: make(map[string]*domain.Transaction),
	}
}

type snapshot struct {
	accounts     map[string]*domain.Account
	actors       map[string]*domain.Actor
	grants       map[string]*domain.RoleGrant
	instruments  map[string]*domain.Instrument
	positions    map[string]*domain.Position
	transactions map[string]*domain.Transaction
	entries      []*domain.Entry
	events       []*domain.OutboxEvent
}

func copyMap[T any](in map[string]*T) map[string]*T {
	out := make(map[string]*T, len(in))
	for k, v := range in {
		c := *v
		out[k] = &c
	}
	return out
}

func (s *Store) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &snapshot{
		accounts:     copyMap(s.accounts),
		actors:       copyMap(s.actors),
		grants:       copyMap(s.grants),
		instruments:  copyMap(s.instruments),
		positions:    copyMap(s.positions),
		transactions: copyMap(s.transactions),
		entries:      slices.Clone(s.entries),
		events:       slices.Clone(s.events),
	}
}

func (s *Store) restore(snap *snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = snap.accounts
	s.actors = snap.actors
	s.grants = snap.grants
	s.instruments = snap.instruments
	s.positions = snap.positions
	s.transactions = snap.transactions
	s.entries = snap.entries
	s.events = snap.events
}

// PutAccount stores a copy of the account.
func (s *Store) PutAccount(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.accounts[a.ID] = &c
}

// Account returns a copy of the stored account, or nil.
func (s *Store) Account(id string) *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil
	}
	c := *a
	return &c
}

// PutActor stores a copy of the actor.
func (s *Store) PutActor(a *domain.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *a
	s.actors[a.ID] = &c
}

// PutGrant stores a copy of the grant.
func (s *Store) PutGrant(g *domain.RoleGrant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *g
	s.grants[g.ID] = &c
}

// Grant returns a copy of the stored grant, or nil.
func (s *Store) Grant(id string) *domain.RoleGrant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[id]
	if !ok {
		return nil
	}
	c := *g
	return &c
}

// PutInstrument stores a copy of the instrument.
func (s *Store) PutInstrument(i *domain.Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *i
	s.instruments[i.ID] = &c
}

// PutPosition stores a copy of the position.
func (s *Store) PutPosition(p *domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.positions[p.ID] = &c
}

// Position returns a copy of the stored position, or nil.
func (s *Store) Position(id string) *domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[id]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

// Positions returns copies of every stored position.
func (s *Store) Positions() []*domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		c := *p
		out = append(out, &c)
	}
	return out
}

// Transaction returns a copy of the stored transaction, or nil.
func (s *Store) Transaction(id string) *domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil
	}
	c := *t
	return &c
}

// Transactions returns copies of every stored transaction.
func (s *Store) Transactions() []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		c := *t
		out = append(out, &c)
	}
	return out
}

// Entries returns the entries written for an account, oldest first.
func (s *Store) Entries(accountID string) []*domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Entry
	for _, e := range s.entries {
		if e.AccountID == accountID {
			c := *e
			out = append(out, &c)
		}
	}
	return out
}

// Events returns the outbox events of the given type.
func (s *Store) Events(eventType string) []*domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range s.events {
		if e.EventType == eventType {
			c := *e
			out = append(out, &c)
		}
	}
	return out
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	store *Store

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdateFunc  func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error)
	UpdateBalancesFunc    func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	UpdateStatusFunc      func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
}

func NewMockAccountRepository(store *Store) *MockAccountRepository {
	return &MockAccountRepository{store: store}
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, a := range m.store.accounts {
		if a.Number == account.Number {
			return domain.ErrAccountNumberTaken
		}
	}
	c := *account
	m.store.accounts[account.ID] = &c
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	if a := m.store.Account(id); a != nil {
		return a, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	sorted := slices.Clone(ids)
	sort.Strings(sorted)
	accounts := make([]*domain.Account, 0, len(sorted))
	for _, id := range sorted {
		if a := m.store.Account(id); a != nil {
			accounts = append(accounts, a)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) ExistsByNumber(ctx context.Context, tx usecase.Transaction, number string) (bool, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, a := range m.store.accounts {
		if a.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockAccountRepository) UpdateBalances(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.UpdateBalancesFunc != nil {
		return m.UpdateBalancesFunc(ctx, tx, account)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	stored.TotalBalance = account.TotalBalance
	stored.AvailableBalance = account.AvailableBalance
	stored.Version = account.Version
	stored.UpdatedAt = account.UpdatedAt
	return nil
}

func (m *MockAccountRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, account)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	stored.Status = account.Status
	stored.ClosedAt = account.ClosedAt
	stored.UpdatedAt = account.UpdatedAt
	return nil
}

func (m *MockAccountRepository) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*domain.Account, error) {
	m.store.mu.RLock()
	ids := make(map[string]struct{})
	for _, g := range m.store.grants {
		if g.Active && g.ActorID == actorID {
			ids[g.AccountID] = struct{}{}
		}
	}
	m.store.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(ids))
	for id := range ids {
		if a := m.store.Account(id); a != nil {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return page(accounts, limit, offset), nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	m.store.mu.RLock()
	accounts := make([]*domain.Account, 0, len(m.store.accounts))
	for _, a := range m.store.accounts {
		c := *a
		accounts = append(accounts, &c)
	}
	m.store.mu.RUnlock()
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return page(accounts, limit, offset), nil
}

// MockActorRepository is a mock implementation of ActorRepository.
type MockActorRepository struct {
	store *Store
}

func NewMockActorRepository(store *Store) *MockActorRepository {
	return &MockActorRepository{store: store}
}

func (m *MockActorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	m.store.PutActor(actor)
	return nil
}

func (m *MockActorRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Actor, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if a, ok := m.store.actors[id]; ok {
		c := *a
		return &c, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrActorNotFound, id)
}

// MockGrantRepository is a mock implementation of GrantRepository.
type MockGrantRepository struct {
	store *Store

	ListActiveFunc func(ctx context.Context, tx usecase.Transaction, accountID, actorID string) ([]*domain.RoleGrant, error)
}

func NewMockGrantRepository(store *Store) *MockGrantRepository {
	return &MockGrantRepository{store: store}
}

func (m *MockGrantRepository) Create(ctx context.Context, tx usecase.Transaction, grant *domain.RoleGrant) error {
	m.store.PutGrant(grant)
	return nil
}

func (m *MockGrantRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.RoleGrant, error) {
	if g := m.store.Grant(id); g != nil {
		return g, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrGrantNotFound, id)
}

func (m *MockGrantRepository) ListActive(ctx context.Context, tx usecase.Transaction, accountID, actorID string) ([]*domain.RoleGrant, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, tx, accountID, actorID)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	grants := make([]*domain.RoleGrant, 0)
	for _, g := range m.store.grants {
		if !g.Active || g.AccountID != accountID {
			continue
		}
		if actorID != "" && g.ActorID != actorID {
			continue
		}
		c := *g
		grants = append(grants, &c)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].ID < grants[j].ID })
	return grants, nil
}

func (m *MockGrantRepository) Deactivate(ctx context.Context, tx usecase.Transaction, grant *domain.RoleGrant) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.grants[grant.ID]
	if !ok {
		return domain.ErrGrantNotFound
	}
	stored.Active = false
	stored.EndedAt = grant.EndedAt
	return nil
}

// MockInstrumentRepository is an in-memory InstrumentCatalog.
type MockInstrumentRepository struct {
	store *Store
}

func NewMockInstrumentRepository(store *Store) *MockInstrumentRepository {
	return &MockInstrumentRepository{store: store}
}

func (m *MockInstrumentRepository) GetByID(ctx context.Context, id string) (*domain.Instrument, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	if i, ok := m.store.instruments[id]; ok {
		c := *i
		return &c, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrInstrumentNotFound, id)
}

func (m *MockInstrumentRepository) ListAvailable(ctx context.Context) ([]*domain.Instrument, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	out := make([]*domain.Instrument, 0)
	for _, i := range m.store.instruments {
		if i.IsAvailable() {
			c := *i
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Code < out[b].Code })
	return out, nil
}

// MockPositionRepository is a mock implementation of PositionRepository.
type MockPositionRepository struct {
	store *Store

	CreateFunc func(ctx context.Context, tx usecase.Transaction, position *domain.Position) error
	UpdateFunc func(ctx context.Context, tx usecase.Transaction, position *domain.Position) error
}

func NewMockPositionRepository(store *Store) *MockPositionRepository {
	return &MockPositionRepository{store: store}
}

func (m *MockPositionRepository) Create(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, position)
	}
	m.store.PutPosition(position)
	return nil
}

func (m *MockPositionRepository) GetByID(ctx context.Context, id string) (*domain.Position, error) {
	if p := m.store.Position(id); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrPositionNotFound, id)
}

func (m *MockPositionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Position, error) {
	return m.GetByID(ctx, id)
}

func (m *MockPositionRepository) Update(ctx context.Context, tx usecase.Transaction, position *domain.Position) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, position)
	}
	if m.store.Position(position.ID) == nil {
		return domain.ErrPositionNotFound
	}
	m.store.PutPosition(position)
	return nil
}

func (m *MockPositionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Position, error) {
	positions := make([]*domain.Position, 0)
	for _, p := range m.store.Positions() {
		if p.AccountID == accountID {
			positions = append(positions, p)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].ID < positions[j].ID })
	return page(positions, limit, offset), nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	store *Store

	CreateFunc       func(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error
	UpdateStatusFunc func(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error
}

func NewMockTransactionRepository(store *Store) *MockTransactionRepository {
	return &MockTransactionRepository{store: store}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, record)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c := *record
	m.store.transactions[record.ID] = &c
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if t := m.store.Transaction(id); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, id)
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	return m.GetByID(ctx, id)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, record *domain.Transaction) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, record)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	stored, ok := m.store.transactions[record.ID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	stored.Status = record.Status
	stored.Description = record.Description
	stored.ExecutedAt = record.ExecutedAt
	return nil
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	records := make([]*domain.Transaction, 0)
	for _, t := range m.store.Transactions() {
		if (t.SourceAccountID != nil && *t.SourceAccountID == accountID) ||
			(t.DestAccountID != nil && *t.DestAccountID == accountID) {
			records = append(records, t)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID > records[j].ID })
	return page(records, limit, offset), nil
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	store *Store

	CreateFunc func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
}

func NewMockEntryRepository(store *Store) *MockEntryRepository {
	return &MockEntryRepository{store: store}
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c := *entry
	m.store.entries = append(m.store.entries, &c)
	return nil
}

func (m *MockEntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	entries := m.store.Entries(accountID)
	slices.Reverse(entries)
	return page(entries, limit, offset), nil
}

func (m *MockEntryRepository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, decimal.Decimal, error) {
	total, available := decimal.Zero, decimal.Zero
	for _, e := range m.store.Entries(accountID) {
		total = total.Add(e.TotalDelta())
		available = available.Add(e.AvailableDelta())
	}
	return total, available, nil
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	store *Store
}

func NewMockLedgerRepository(store *Store) *MockLedgerRepository {
	return &MockLedgerRepository{store: store}
}

func (m *MockLedgerRepository) CheckConsistency(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	balances, entries := decimal.Zero, decimal.Zero
	for _, a := range m.store.accounts {
		balances = balances.Add(a.TotalBalance)
	}
	for _, e := range m.store.entries {
		entries = entries.Add(e.TotalDelta())
	}
	return balances, entries, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	store *Store
}

func NewMockOutboxRepository(store *Store) *MockOutboxRepository {
	return &MockOutboxRepository{store: store}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c := *event
	m.store.events = append(m.store.events, &c)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	out := make([]*domain.OutboxEvent, 0)
	for _, e := range m.store.events {
		if !e.Published && len(out) < limit {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, e := range m.store.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
			return nil
		}
	}
	return errors.New("outbox event not found")
}

// MockTransactionManager is a mock implementation of TransactionManager.
// Transactions run one at a time and Rollback restores the state captured by
// Begin.
type MockTransactionManager struct {
	store *Store
	txMu  sync.Mutex

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
	// CommitErr makes every Commit fail and roll back.
	CommitErr error
	Begins    int
}

func NewMockTransactionManager(store *Store) *MockTransactionManager {
	return &MockTransactionManager{store: store}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.txMu.Lock()
	m.Begins++
	return &MockTransaction{manager: m, snap: m.store.snapshot()}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	manager *MockTransactionManager
	snap    *snapshot
	done    bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.done {
		return errors.New("transaction already closed")
	}
	if m.manager.CommitErr != nil {
		m.finish(true)
		return m.manager.CommitErr
	}
	m.finish(false)
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.done {
		return nil
	}
	m.finish(true)
	return nil
}

func (m *MockTransaction) finish(restore bool) {
	if restore {
		m.manager.store.restore(m.snap)
	}
	m.done = true
	m.manager.txMu.Unlock()
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%06d", m.counter)
}

// MockAccountNumbers returns the queued numbers in order, then repeats the
// last one.
type MockAccountNumbers struct {
	mu      sync.Mutex
	numbers []string
	Calls   int
}

func NewMockAccountNumbers(numbers ...string) *MockAccountNumbers {
	return &MockAccountNumbers{numbers: numbers}
}

func (m *MockAccountNumbers) Generate(now time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if len(m.numbers) == 0 {
		return "INV-00000000-00000"
	}
	n := m.numbers[0]
	if len(m.numbers) > 1 {
		m.numbers = m.numbers[1:]
	}
	return n
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// Get returns the stored value for key.
func (m *MockIdempotencyStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
