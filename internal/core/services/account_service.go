package services

import (
	"context"
	"errors"
	"log"

	"vaultbank/internal/adapters/persistence/models"
	"vaultbank/internal/adapters/persistence/repositories"
	"vaultbank/internal/core/domain"
	"vaultbank/internal/pkg/keylock"
	"vaultbank/internal/pkg/password"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountService applies single-account credits and debits with validation
// and emits the matching immutable transaction records.
type AccountService struct {
	store     repositories.LedgerStore
	notify    *NotificationService
	locks     *keylock.KeyLock
	validator *validator.Validate
}

// NewAccountService creates a new account service
func NewAccountService(store repositories.LedgerStore, notify *NotificationService, locks *keylock.KeyLock) *AccountService {
	return &AccountService{
		store:     store,
		notify:    notify,
		locks:     locks,
		validator: validator.New(),
	}
}

// MutationResult is the outcome of a settled balance mutation. Warning is set
// when the post-commit notification failed; it never reflects a ledger error.
type MutationResult struct {
	Account     *models.Account     `json:"account"`
	Transaction *models.Transaction `json:"transaction"`
	Warning     string              `json:"warning,omitempty"`
}

// OpenAccountInput represents account opening input
type OpenAccountInput struct {
	AccountType    string          `json:"account_type" validate:"required,oneof=SAVINGS CURRENT SALARY"`
	OpeningDeposit decimal.Decimal `json:"opening_deposit"`
	TxnPassword    string          `json:"txn_password" validate:"required,min=6"`
}

// OpenAccount creates a new account for the caller. A positive opening
// deposit is recorded as the account's first transaction.
func (s *AccountService) OpenAccount(ctx context.Context, callerUserID uint, input *OpenAccountInput) (*models.Account, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, domain.ErrInvalidInput
	}
	if input.OpeningDeposit.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	owner, err := s.store.GetUser(ctx, callerUserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccessDenied
		}
		return nil, err
	}
	if !owner.IsActive {
		return nil, domain.ErrAccessDenied
	}

	hash, err := password.Hash(input.TxnPassword)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		UserID:      callerUserID,
		AccountType: input.AccountType,
		Balance:     input.OpeningDeposit,
		IsActive:    true,
		TxnPassword: hash,
		Owner:       owner,
	}

	err = s.store.Atomically(ctx, func(store repositories.LedgerStore) error {
		if err := store.InsertAccount(ctx, account); err != nil {
			return err
		}
		if input.OpeningDeposit.IsPositive() {
			return store.InsertTransaction(ctx, newTransaction(
				account.ID, account.ID, input.OpeningDeposit, models.TxTypeDeposit, "Opening deposit"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount returns an account the caller owns
func (s *AccountService) GetAccount(ctx context.Context, accountID, callerUserID uint) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	if account.UserID != callerUserID {
		return nil, domain.ErrAccessDenied
	}
	return account, nil
}

// GetAccountsByUser returns all accounts owned by the caller
func (s *AccountService) GetAccountsByUser(ctx context.Context, callerUserID uint) ([]*models.Account, error) {
	return s.store.GetAccountsByUser(ctx, callerUserID)
}

// StatementOutput represents an account statement page
type StatementOutput struct {
	Transactions []*models.Transaction `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         int                   `json:"page"`
	Limit        int                   `json:"limit"`
}

// GetStatement lists the account's transactions, newest first
func (s *AccountService) GetStatement(ctx context.Context, accountID, callerUserID uint, page, limit int) (*StatementOutput, error) {
	if _, err := s.GetAccount(ctx, accountID, callerUserID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	transactions, total, err := s.store.GetTransactionsByAccount(ctx, accountID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	return &StatementOutput{
		Transactions: transactions,
		Total:        total,
		Page:         page,
		Limit:        limit,
	}, nil
}

// Deposit credits an account. Validation happens fully before any write; on
// success the balance change and the transaction record commit together.
func (s *AccountService) Deposit(ctx context.Context, accountID, callerUserID uint, amount decimal.Decimal) (*MutationResult, error) {
	return s.mutate(ctx, accountID, callerUserID, amount, models.TxTypeDeposit)
}

// Withdraw debits an account, failing with ErrInsufficientFunds when the
// balance cannot cover the amount.
func (s *AccountService) Withdraw(ctx context.Context, accountID, callerUserID uint, amount decimal.Decimal) (*MutationResult, error) {
	return s.mutate(ctx, accountID, callerUserID, amount, models.TxTypeWithdraw)
}

// mutate serializes the read-modify-write of the account balance under the
// per-account lock.
func (s *AccountService) mutate(ctx context.Context, accountID, callerUserID uint, amount decimal.Decimal, txType string) (*MutationResult, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	s.locks.Lock(accountID)
	defer s.locks.Unlock(accountID)

	account, err := s.loadOwnedActiveAccount(ctx, accountID, callerUserID)
	if err != nil {
		return nil, err
	}

	tx := newTransaction(accountID, accountID, amount, txType, "ATM")

	err = s.store.Atomically(ctx, func(store repositories.LedgerStore) error {
		if txType == models.TxTypeWithdraw {
			if err := applyDebit(ctx, store, account, amount); err != nil {
				return err
			}
		} else {
			if err := applyCredit(ctx, store, account, amount); err != nil {
				return err
			}
		}
		return store.InsertTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	result := &MutationResult{Account: account, Transaction: tx}
	if err := s.notify.NotifyBalanceChange(ownerAddress(account), txType, amount, account.Balance); err != nil {
		log.Printf("notification failed for account %d: %v", accountID, err)
		result.Warning = "transaction recorded but notification could not be delivered"
	}

	return result, nil
}

// ChangeTxnPassword rotates the account's transaction password
func (s *AccountService) ChangeTxnPassword(ctx context.Context, accountID, callerUserID uint, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return domain.ErrInvalidInput
	}

	account, err := s.GetAccount(ctx, accountID, callerUserID)
	if err != nil {
		return err
	}
	if !password.Verify(oldPassword, account.TxnPassword) {
		return domain.ErrAccessDenied
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	account.TxnPassword = hash

	return s.store.UpsertAccount(ctx, account)
}

// loadOwnedActiveAccount loads an account and checks ownership and the active
// flag, mapping failures onto the domain taxonomy.
func (s *AccountService) loadOwnedActiveAccount(ctx context.Context, accountID, callerUserID uint) (*models.Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	if account.UserID != callerUserID {
		return nil, domain.ErrAccessDenied
	}
	if !account.IsActive {
		return nil, domain.ErrAccountInactive
	}
	return account, nil
}

// applyCredit adds amount to the account balance and persists it. Callers
// must hold the account lock.
func applyCredit(ctx context.Context, store repositories.LedgerStore, account *models.Account, amount decimal.Decimal) error {
	account.Balance = account.Balance.Add(amount)
	return store.UpsertAccount(ctx, account)
}

// applyDebit subtracts amount from the account balance and persists it,
// refusing to let the balance go negative. Callers must hold the account lock.
func applyDebit(ctx context.Context, store repositories.LedgerStore, account *models.Account, amount decimal.Decimal) error {
	if account.Balance.LessThan(amount) {
		return domain.ErrInsufficientFunds
	}
	account.Balance = account.Balance.Sub(amount)
	return store.UpsertAccount(ctx, account)
}

// newTransaction builds an immutable transaction record with a fresh
// reference id.
func newTransaction(accountID, receiverID uint, amount decimal.Decimal, txType, description string) *models.Transaction {
	return &models.Transaction{
		Reference:   uuid.NewString(),
		AccountID:   accountID,
		ReceiverID:  receiverID,
		Amount:      amount,
		Type:        txType,
		Description: description,
	}
}

// ownerAddress returns the notification address for an account owner
func ownerAddress(account *models.Account) string {
	if account.Owner != nil {
		return account.Owner.Email
	}
	return ""
}
