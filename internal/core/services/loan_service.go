package services

import (
	"context"
	"errors"
	"log"
	"time"

	"vaultbank/internal/adapters/persistence/models"
	"vaultbank/internal/adapters/persistence/repositories"
	"vaultbank/internal/core/domain"
	"vaultbank/internal/pkg/keylock"

	"github.com/shopspring/decimal"
)

// Interest rate tiers by loan duration in days
var (
	rateShort  = decimal.RequireFromString("0.02") // under 30 days
	rateMedium = decimal.RequireFromString("0.05") // 30 to 89 days
	rateLong   = decimal.RequireFromString("0.10") // 90 to 179 days
	rateMax    = decimal.RequireFromString("0.15") // 180 days and over
)

// LoanTerms is the outcome of the deterministic interest calculation
type LoanTerms struct {
	Days        int             `json:"days"`
	Rate        decimal.Decimal `json:"rate"`
	FinalAmount decimal.Decimal `json:"final_amount"`
}

// ComputeLoanTerms derives the interest tier from the loan duration and
// returns the total repayable amount. Pure; no store access.
func ComputeLoanTerms(principal decimal.Decimal, appliedDate, targetDate time.Time) LoanTerms {
	days := int(targetDate.Sub(appliedDate).Hours() / 24)

	var rate decimal.Decimal
	switch {
	case days < 30:
		rate = rateShort
	case days < 90:
		rate = rateMedium
	case days < 180:
		rate = rateLong
	default:
		rate = rateMax
	}

	return LoanTerms{
		Days:        days,
		Rate:        rate,
		FinalAmount: principal.Add(principal.Mul(rate)),
	}
}

// LoanService manages the loan lifecycle: PENDING -> OPENED -> CLOSED with a
// PENDING -> REJECTED side branch.
type LoanService struct {
	store  repositories.LedgerStore
	notify *NotificationService
	locks  *keylock.KeyLock
}

// NewLoanService creates a new loan service
func NewLoanService(store repositories.LedgerStore, notify *NotificationService, locks *keylock.KeyLock) *LoanService {
	return &LoanService{
		store:  store,
		notify: notify,
		locks:  locks,
	}
}

// LoanResult is the outcome of a loan operation that may touch a balance.
// Warning is set when a post-commit notification failed.
type LoanResult struct {
	Loan        *models.Loan        `json:"loan"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Warning     string              `json:"warning,omitempty"`
}

// ApplyForLoan creates a PENDING loan carrying the full repayable amount.
// No balance changes until approval.
func (s *LoanService) ApplyForLoan(ctx context.Context, callerUserID, accountID uint, principal decimal.Decimal, appliedDate, targetDate time.Time) (*LoanResult, error) {
	if !principal.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if !targetDate.After(appliedDate) {
		return nil, domain.ErrInvalidInput
	}

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

	terms := ComputeLoanTerms(principal, appliedDate, targetDate)

	loan := &models.Loan{
		AccountID:     accountID,
		Principal:     principal,
		PendingAmount: terms.FinalAmount,
		Status:        models.LoanStatusPending,
		AppliedAt:     appliedDate,
		DueDate:       targetDate,
	}
	if err := s.store.UpsertLoan(ctx, loan); err != nil {
		return nil, err
	}

	result := &LoanResult{Loan: loan}
	if err := s.notify.NotifyLoanApplied(ownerAddress(account), principal, terms.FinalAmount, targetDate); err != nil {
		log.Printf("loan application notification failed for account %d: %v", accountID, err)
		result.Warning = "loan application recorded but notification could not be delivered"
	}

	return result, nil
}

// GetLoan returns a loan whose account the caller owns
func (s *LoanService) GetLoan(ctx context.Context, loanID, callerUserID uint) (*models.Loan, error) {
	loan, account, err := s.loadLoanWithAccount(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if account.UserID != callerUserID {
		return nil, domain.ErrAccessDenied
	}
	return loan, nil
}

// GetLoansByAccount lists loans for an account the caller owns
func (s *LoanService) GetLoansByAccount(ctx context.Context, accountID, callerUserID uint) ([]*models.Loan, error) {
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
	return s.store.GetLoansByAccount(ctx, accountID)
}

// ApproveLoan opens a PENDING loan and disburses the principal. Only the
// principal is credited; the pending amount including interest is what must
// be repaid. Reviewer-only.
func (s *LoanService) ApproveLoan(ctx context.Context, loanID uint) (*LoanResult, error) {
	loan, _, err := s.loadLoanWithAccount(ctx, loanID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(loan.AccountID)
	defer s.locks.Unlock(loan.AccountID)

	// Re-read under the lock so a concurrent approval cannot disburse twice.
	loan, account, err := s.loadLoanWithAccount(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != models.LoanStatusPending {
		return nil, domain.ErrInvalidLoanStatus
	}

	tx := newTransaction(loan.AccountID, loan.AccountID, loan.Principal, models.TxTypeDeposit, "Loan disbursement")

	err = s.store.Atomically(ctx, func(store repositories.LedgerStore) error {
		if err := applyCredit(ctx, store, account, loan.Principal); err != nil {
			return err
		}
		loan.Status = models.LoanStatusOpened
		if err := store.UpsertLoan(ctx, loan); err != nil {
			return err
		}
		return store.InsertTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	result := &LoanResult{Loan: loan, Transaction: tx}
	if err := s.notify.NotifyLoanApproved(ownerAddress(account), account.Balance, loan.PendingAmount, loan.DueDate); err != nil {
		log.Printf("loan approval notification failed for account %d: %v", loan.AccountID, err)
		result.Warning = "loan approved but notification could not be delivered"
	}

	return result, nil
}

// RejectLoan rejects a PENDING loan. No balance changes. Reviewer-only.
func (s *LoanService) RejectLoan(ctx context.Context, loanID uint) (*LoanResult, error) {
	loan, account, err := s.loadLoanWithAccount(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != models.LoanStatusPending {
		return nil, domain.ErrInvalidLoanStatus
	}

	loan.Status = models.LoanStatusRejected
	if err := s.store.UpsertLoan(ctx, loan); err != nil {
		return nil, err
	}

	result := &LoanResult{Loan: loan}
	if err := s.notify.NotifyLoanRejected(ownerAddress(account), loan.Principal); err != nil {
		log.Printf("loan rejection notification failed for account %d: %v", loan.AccountID, err)
		result.Warning = "loan rejected but notification could not be delivered"
	}

	return result, nil
}

// RepayLoan applies a repayment against an OPENED loan. The loan update, the
// account debit, the repayment record and the transaction record commit as
// one unit; reducing the pending amount to zero closes the loan.
func (s *LoanService) RepayLoan(ctx context.Context, callerUserID, loanID uint, amount decimal.Decimal, paymentDate time.Time) (*LoanResult, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	peek, _, err := s.loadLoanWithAccount(ctx, loanID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(peek.AccountID)
	defer s.locks.Unlock(peek.AccountID)

	// Guards run against the state under the lock; validation completes
	// before any write.
	loan, account, err := s.loadLoanWithAccount(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if account.UserID != callerUserID {
		return nil, domain.ErrAccessDenied
	}
	if loan.Status != models.LoanStatusOpened {
		return nil, domain.ErrInvalidLoanStatus
	}
	if amount.GreaterThan(loan.PendingAmount) {
		return nil, domain.ErrInvalidRepaymentAmount
	}
	if paymentDate.After(loan.DueDate) {
		return nil, domain.ErrDueDatePassed
	}

	tx := newTransaction(loan.AccountID, loan.AccountID, amount, models.TxTypeLoanPayment, "Loan repayment")
	repayment := &models.LoanRepayment{
		LoanID: loanID,
		Amount: amount,
		PaidAt: paymentDate,
	}

	err = s.store.Atomically(ctx, func(store repositories.LedgerStore) error {
		loan.PendingAmount = loan.PendingAmount.Sub(amount)
		if loan.PendingAmount.IsZero() {
			loan.Status = models.LoanStatusClosed
			now := time.Now()
			loan.RepaidAt = &now
		}
		if err := store.UpsertLoan(ctx, loan); err != nil {
			return err
		}
		if err := applyDebit(ctx, store, account, amount); err != nil {
			return err
		}
		if err := store.InsertLoanRepayment(ctx, repayment); err != nil {
			return err
		}
		return store.InsertTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	result := &LoanResult{Loan: loan, Transaction: tx}
	closed := loan.Status == models.LoanStatusClosed
	if err := s.notify.NotifyLoanRepayment(ownerAddress(account), amount, loan.PendingAmount, closed); err != nil {
		log.Printf("repayment notification failed for account %d: %v", loan.AccountID, err)
		result.Warning = "repayment recorded but notification could not be delivered"
	}

	return result, nil
}

// loadLoanWithAccount loads a loan and its owning account, mapping store
// misses onto the domain taxonomy.
func (s *LoanService) loadLoanWithAccount(ctx context.Context, loanID uint) (*models.Loan, *models.Account, error) {
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrLoanNotFound
		}
		return nil, nil, err
	}

	account, err := s.store.GetAccount(ctx, loan.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrAccountNotFound
		}
		return nil, nil, err
	}

	return loan, account, nil
}
