package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vaultbank/internal/adapters/persistence/models"
	"vaultbank/internal/adapters/persistence/repositories"
	"vaultbank/internal/core/domain"
	"vaultbank/internal/pkg/keylock"

	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory LedgerStore. Reads return copies so stale state
// held by a caller never aliases the stored record, matching how rows behave.
type fakeStore struct {
	mu            sync.Mutex
	users         map[uint]*models.User
	accounts      map[uint]*models.Account
	transactions  []*models.Transaction
	verifications map[uint]*models.TransactionVerification
	pendings      map[uint]*models.PendingTransaction
	loans         map[uint]*models.Loan
	repayments    []*models.LoanRepayment
	nextID        uint
}

var _ repositories.LedgerStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[uint]*models.User),
		accounts:      make(map[uint]*models.Account),
		verifications: make(map[uint]*models.TransactionVerification),
		pendings:      make(map[uint]*models.PendingTransaction),
		loans:         make(map[uint]*models.Loan),
	}
}

func (s *fakeStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) GetAccountsByUser(ctx context.Context, userID uint) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) InsertAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account.ID == 0 {
		account.ID = s.id()
	}
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *fakeStore) UpsertAccount(ctx context.Context, account *models.Account) error {
	return s.InsertAccount(ctx, account)
}

func (s *fakeStore) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == 0 {
		tx.ID = s.id()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	cp := *tx
	s.transactions = append(s.transactions, &cp)
	return nil
}

func (s *fakeStore) GetTransactionsByAccount(ctx context.Context, accountID uint, offset, limit int) ([]*models.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*models.Transaction
	for _, tx := range s.transactions {
		if tx.AccountID == accountID || tx.ReceiverID == accountID {
			cp := *tx
			matched = append(matched, &cp)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *fakeStore) GetVerificationByAccount(ctx context.Context, accountID uint) (*models.TransactionVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.verifications {
		if v.AccountID == accountID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) InsertVerification(ctx context.Context, v *models.TransactionVerification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == 0 {
		v.ID = s.id()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	cp := *v
	s.verifications[v.ID] = &cp
	return nil
}

func (s *fakeStore) DeleteVerification(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.verifications, id)
	return nil
}

func (s *fakeStore) GetPendingTransaction(ctx context.Context, id uint) (*models.PendingTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pendings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) UpsertPendingTransaction(ctx context.Context, p *models.PendingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	cp := *p
	s.pendings[p.ID] = &cp
	return nil
}

func (s *fakeStore) GetLoan(ctx context.Context, id uint) (*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *fakeStore) GetLoansByAccount(ctx context.Context, accountID uint) ([]*models.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Loan
	for _, l := range s.loans {
		if l.AccountID == accountID {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertLoan(ctx context.Context, loan *models.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loan.ID == 0 {
		loan.ID = s.id()
	}
	cp := *loan
	s.loans[loan.ID] = &cp
	return nil
}

func (s *fakeStore) InsertLoanRepayment(ctx context.Context, r *models.LoanRepayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	cp := *r
	s.repayments = append(s.repayments, &cp)
	return nil
}

func (s *fakeStore) Atomically(ctx context.Context, fn func(store repositories.LedgerStore) error) error {
	return fn(s)
}

// seedUser inserts an active user
func (s *fakeStore) seedUser(id uint) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{
		ID:       id,
		Username: fmt.Sprintf("user%d", id),
		Email:    fmt.Sprintf("user%d@example.com", id),
		Role:     models.RoleUser,
		IsActive: true,
	}
	s.users[id] = u
	return u
}

// seedAccount inserts an active account with the given owner and balance
func (s *fakeStore) seedAccount(userID uint, balance string) *models.Account {
	account := &models.Account{
		UserID:      userID,
		AccountType: models.AccountTypeSavings,
		Balance:     decimal.RequireFromString(balance),
		IsActive:    true,
	}
	_ = s.InsertAccount(context.Background(), account)
	return account
}

// balanceOf reads the live balance straight from the store
func (s *fakeStore) balanceOf(accountID uint) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[accountID].Balance
}

// sentNotification records one delivered message
type sentNotification struct {
	Address string
	Subject string
	Body    string
}

// fakeNotifier records deliveries and can simulate an outage
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	fail bool
}

func (n *fakeNotifier) Notify(address, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.sent = append(n.sent, sentNotification{Address: address, Subject: subject, Body: body})
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// newTestDeps builds the shared fixtures for service tests
func newTestDeps() (*fakeStore, *fakeNotifier, *NotificationService, *keylock.KeyLock) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	return store, notifier, NewNotificationService(notifier), keylock.New()
}
