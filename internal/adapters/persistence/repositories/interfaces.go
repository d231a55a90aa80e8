package repositories

import (
	"context"

	"vaultbank/internal/adapters/persistence/models"
)

// LedgerStore is the single store abstraction the engine writes through.
// Each call is individually atomic; multi-record effects must go through
// Atomically, which runs fn against a transactional view of the same store.
type LedgerStore interface {
	// Users (identity boundary, read side only)
	GetUser(ctx context.Context, id uint) (*models.User, error)

	// Accounts
	GetAccount(ctx context.Context, id uint) (*models.Account, error)
	GetAccountsByUser(ctx context.Context, userID uint) ([]*models.Account, error)
	InsertAccount(ctx context.Context, account *models.Account) error
	UpsertAccount(ctx context.Context, account *models.Account) error

	// Transactions (immutable, insert only)
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionsByAccount(ctx context.Context, accountID uint, offset, limit int) ([]*models.Transaction, int64, error)

	// Transfer verifications
	GetVerificationByAccount(ctx context.Context, accountID uint) (*models.TransactionVerification, error)
	InsertVerification(ctx context.Context, v *models.TransactionVerification) error
	DeleteVerification(ctx context.Context, id uint) error

	// Pending transactions
	GetPendingTransaction(ctx context.Context, id uint) (*models.PendingTransaction, error)
	UpsertPendingTransaction(ctx context.Context, p *models.PendingTransaction) error

	// Loans
	GetLoan(ctx context.Context, id uint) (*models.Loan, error)
	GetLoansByAccount(ctx context.Context, accountID uint) ([]*models.Loan, error)
	UpsertLoan(ctx context.Context, loan *models.Loan) error
	InsertLoanRepayment(ctx context.Context, r *models.LoanRepayment) error

	// Atomically runs fn inside a store transaction; a returned error rolls
	// back every write made through the passed store.
	Atomically(ctx context.Context, fn func(store LedgerStore) error) error
}
