package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"finance-service/internal/domain"
	"finance-service/internal/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fakeStore backs the usecase tests with an in-memory implementation of
// the account, expense and income repositories. One transaction runs at a
// time: txMu stands in for postgres row locks, and the state snapshot
// taken at BeginTx is restored on rollback.
type fakeStore struct {
	stateMu sync.Mutex
	txMu    sync.Mutex

	accounts map[int64]*domain.Account
	expenses map[int64]*domain.Expense
	incomes  map[int64]*domain.Income

	nextAccountID int64
	nextRecordID  int64

	beginCount int
	failAdjust error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: make(map[int64]*domain.Account),
		expenses: make(map[int64]*domain.Expense),
		incomes:  make(map[int64]*domain.Income),
	}
}

func (s *fakeStore) addAccount(a domain.Account) *domain.Account {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.nextAccountID++
	a.ID = s.nextAccountID
	s.accounts[a.ID] = &a
	return &a
}

func (s *fakeStore) balanceOf(id int64) decimal.Decimal {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.accounts[id].Balance
}

// ===============================
// TRANSACTIONS
// ===============================

type fakeTx struct {
	store *fakeStore
	prev  snapshot
	done  bool
}

type snapshot struct {
	accounts map[int64]*domain.Account
	expenses map[int64]*domain.Expense
	incomes  map[int64]*domain.Income
}

func (s *fakeStore) BeginTx(ctx context.Context) (pgx.Tx, error) {
	s.txMu.Lock()
	s.stateMu.Lock()
	s.beginCount++
	snap := snapshot{
		accounts: make(map[int64]*domain.Account, len(s.accounts)),
		expenses: make(map[int64]*domain.Expense, len(s.expenses)),
		incomes:  make(map[int64]*domain.Income, len(s.incomes)),
	}
	for id, a := range s.accounts {
		cp := *a
		snap.accounts[id] = &cp
	}
	for id, e := range s.expenses {
		cp := *e
		snap.expenses[id] = &cp
	}
	for id, i := range s.incomes {
		cp := *i
		snap.incomes[id] = &cp
	}
	s.stateMu.Unlock()
	return &fakeTx{store: s, prev: snap}, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.stateMu.Lock()
	t.store.accounts = t.prev.accounts
	t.store.expenses = t.prev.expenses
	t.store.incomes = t.prev.incomes
	t.store.stateMu.Unlock()
	t.store.txMu.Unlock()
	return nil
}

// The remaining pgx.Tx surface is never exercised by the fakes.

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, errors.New("not supported") }
func (t *fakeTx) CopyFrom(ctx context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not supported")
}
func (t *fakeTx) SendBatch(ctx context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(ctx context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not supported")
}
func (t *fakeTx) Exec(ctx context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not supported")
}
func (t *fakeTx) Query(ctx context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}
func (t *fakeTx) QueryRow(ctx context.Context, _ string, _ ...any) pgx.Row { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                          { return nil }

// ===============================
// ACCOUNT REPOSITORY
// ===============================

func (s *fakeStore) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.nextAccountID++
	a.ID = s.nextAccountID
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.Account, error) {
	return s.GetByID(ctx, id)
}

func (s *fakeStore) GetPrimary(ctx context.Context) (*domain.Account, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	var found *domain.Account
	for _, a := range s.accounts {
		if a.IsPrimary && a.IsActive && (found == nil || a.ID < found.ID) {
			found = a
		}
	}
	if found == nil {
		return nil, xerrors.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

func (s *fakeStore) List(ctx context.Context, f *domain.AccountFilter) ([]*domain.Account, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	var out []*domain.Account
	for _, a := range s.accounts {
		if f != nil {
			if f.AccountType != nil && a.AccountType != *f.AccountType {
				continue
			}
			if f.IsPrimary != nil && a.IsPrimary != *f.IsPrimary {
				continue
			}
			if f.IsActive != nil && a.IsActive != *f.IsActive {
				continue
			}
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) AdjustBalance(ctx context.Context, tx pgx.Tx, id int64, delta decimal.Decimal) error {
	if s.failAdjust != nil {
		return s.failAdjust
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	return nil
}

func (s *fakeStore) SetPrimary(ctx context.Context, tx pgx.Tx, id int64) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	target, ok := s.accounts[id]
	if !ok || !target.IsActive {
		return xerrors.ErrNotFound
	}
	for _, a := range s.accounts {
		a.IsPrimary = false
	}
	target.IsPrimary = true
	return nil
}

func (s *fakeStore) SoftDelete(ctx context.Context, id int64) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	a.IsActive = false
	a.IsPrimary = false
	return nil
}

// ===============================
// EXPENSE REPOSITORY
// ===============================

type fakeExpenseRepo struct{ *fakeStore }

func (s fakeExpenseRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.Expense) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.nextRecordID++
	e.ID = s.nextRecordID
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	s.expenses[e.ID] = &cp
	return nil
}

func (s fakeExpenseRepo) GetByID(ctx context.Context, id int64) (*domain.Expense, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s fakeExpenseRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.Expense, error) {
	return s.GetByID(ctx, id)
}

func (s fakeExpenseRepo) Update(ctx context.Context, tx pgx.Tx, e *domain.Expense) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if _, ok := s.expenses[e.ID]; !ok {
		return xerrors.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	cp := *e
	s.expenses[e.ID] = &cp
	return nil
}

func (s fakeExpenseRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s fakeExpenseRepo) ListByProject(ctx context.Context, projectCode string) ([]*domain.Expense, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	var out []*domain.Expense
	for _, e := range s.expenses {
		if e.ProjectCode == projectCode {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ===============================
// INCOME REPOSITORY
// ===============================

type fakeIncomeRepo struct{ *fakeStore }

func (s fakeIncomeRepo) Create(ctx context.Context, tx pgx.Tx, i *domain.Income) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.nextRecordID++
	i.ID = s.nextRecordID
	i.CreatedAt = time.Now()
	i.UpdatedAt = i.CreatedAt
	for n, att := range i.Attachments {
		att.ID = int64(n + 1)
		att.IncomeID = i.ID
	}
	cp := *i
	s.incomes[i.ID] = &cp
	return nil
}

func (s fakeIncomeRepo) GetByID(ctx context.Context, id int64) (*domain.Income, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	i, ok := s.incomes[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (s fakeIncomeRepo) GetByIDWithLock(ctx context.Context, tx pgx.Tx, id int64) (*domain.Income, error) {
	return s.GetByID(ctx, id)
}

func (s fakeIncomeRepo) Update(ctx context.Context, tx pgx.Tx, i *domain.Income) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if _, ok := s.incomes[i.ID]; !ok {
		return xerrors.ErrNotFound
	}
	i.UpdatedAt = time.Now()
	cp := *i
	s.incomes[i.ID] = &cp
	return nil
}

func (s fakeIncomeRepo) Delete(ctx context.Context, tx pgx.Tx, id int64) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if _, ok := s.incomes[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(s.incomes, id)
	return nil
}

func (s fakeIncomeRepo) ListByProject(ctx context.Context, projectCode string) ([]*domain.Income, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	var out []*domain.Income
	for _, i := range s.incomes {
		if i.ProjectCode == projectCode {
			cp := *i
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s fakeIncomeRepo) AddAttachment(ctx context.Context, att *domain.IncomeAttachment) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	i, ok := s.incomes[att.IncomeID]
	if !ok {
		return xerrors.ErrNotFound
	}
	att.ID = int64(len(i.Attachments) + 1)
	i.Attachments = append(i.Attachments, att)
	return nil
}

func (s fakeIncomeRepo) ListAttachments(ctx context.Context, incomeID int64) ([]*domain.IncomeAttachment, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	i, ok := s.incomes[incomeID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return append([]*domain.IncomeAttachment(nil), i.Attachments...), nil
}

// ===============================
// HELPERS
// ===============================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T { return &v }

func newTestUsecase(store *fakeStore) *RecordUsecase {
	resolver := NewTransitionResolver(
		domain.DefaultExpenseVocabulary(),
		domain.DefaultIncomeVocabulary(),
		store,
	)
	return NewRecordUsecase(
		fakeExpenseRepo{store},
		fakeIncomeRepo{store},
		store,
		resolver,
		nil,
		zap.NewNop(),
	)
}
