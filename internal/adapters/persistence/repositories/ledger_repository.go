package repositories

import (
	"context"
	"errors"

	"vaultbank/internal/adapters/persistence/models"
	"vaultbank/internal/core/domain"

	"gorm.io/gorm"
)

// LedgerRepository is the gorm-backed LedgerStore.
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

var _ LedgerStore = (*LedgerRepository)(nil)

// GetUser gets a user by ID
func (r *LedgerRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

// GetAccount gets an account by ID
func (r *LedgerRepository) GetAccount(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Preload("Owner").
		First(&account, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &account, nil
}

// GetAccountsByUser gets all accounts owned by a user
func (r *LedgerRepository) GetAccountsByUser(ctx context.Context, userID uint) ([]*models.Account, error) {
	var accounts []*models.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

// InsertAccount creates a new account
func (r *LedgerRepository) InsertAccount(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// UpsertAccount saves account state
func (r *LedgerRepository) UpsertAccount(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// InsertTransaction creates an immutable transaction record
func (r *LedgerRepository) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// GetTransactionsByAccount lists an account's transactions, newest first
func (r *LedgerRepository) GetTransactionsByAccount(ctx context.Context, accountID uint, offset, limit int) ([]*models.Transaction, int64, error) {
	var transactions []*models.Transaction
	var total int64

	r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("account_id = ? OR receiver_id = ?", accountID, accountID).
		Count(&total)

	err := r.db.WithContext(ctx).
		Where("account_id = ? OR receiver_id = ?", accountID, accountID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&transactions).Error

	return transactions, total, err
}

// GetVerificationByAccount gets the outstanding verification for an account
func (r *LedgerRepository) GetVerificationByAccount(ctx context.Context, accountID uint) (*models.TransactionVerification, error) {
	var v models.TransactionVerification
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&v).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &v, nil
}

// InsertVerification creates a verification record
func (r *LedgerRepository) InsertVerification(ctx context.Context, v *models.TransactionVerification) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// DeleteVerification removes a consumed or expired verification
func (r *LedgerRepository) DeleteVerification(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.TransactionVerification{}, id).Error
}

// GetPendingTransaction gets a pending transaction by ID
func (r *LedgerRepository) GetPendingTransaction(ctx context.Context, id uint) (*models.PendingTransaction, error) {
	var p models.PendingTransaction
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &p, nil
}

// UpsertPendingTransaction saves pending transaction state
func (r *LedgerRepository) UpsertPendingTransaction(ctx context.Context, p *models.PendingTransaction) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// GetLoan gets a loan by ID
func (r *LedgerRepository) GetLoan(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Account").
		First(&loan, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &loan, nil
}

// GetLoansByAccount gets loans for an account, newest first
func (r *LedgerRepository) GetLoansByAccount(ctx context.Context, accountID uint) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&loans).Error
	return loans, err
}

// UpsertLoan saves loan state
func (r *LedgerRepository) UpsertLoan(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Save(loan).Error
}

// InsertLoanRepayment creates an immutable repayment record
func (r *LedgerRepository) InsertLoanRepayment(ctx context.Context, repayment *models.LoanRepayment) error {
	return r.db.WithContext(ctx).Create(repayment).Error
}

// Atomically runs fn inside a database transaction. The store passed to fn
// writes through the transaction handle, so a returned error rolls back the
// whole multi-record unit.
func (r *LedgerRepository) Atomically(ctx context.Context, fn func(store LedgerStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LedgerRepository{db: tx})
	})
}

// mapNotFound translates gorm's record-not-found into the domain error so
// services never import gorm.
func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
