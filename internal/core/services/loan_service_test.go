package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"vaultbank/internal/adapters/persistence/models"
	"vaultbank/internal/core/domain"

	"github.com/shopspring/decimal"
)

func newLoanService() (*LoanService, *fakeStore, *fakeNotifier) {
	store, notifier, notify, locks := newTestDeps()
	return NewLoanService(store, notify, locks), store, notifier
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func TestComputeLoanTerms(t *testing.T) {
	applied := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	principal := decimal.RequireFromString("1000")

	tests := []struct {
		name      string
		duration  time.Duration
		wantRate  string
		wantTotal string
	}{
		{"ten days", days(10), "0.02", "1020"},
		{"just under a month", days(29), "0.02", "1020"},
		{"one month", days(30), "0.05", "1050"},
		{"forty five days", days(45), "0.05", "1050"},
		{"just under ninety", days(89), "0.05", "1050"},
		{"ninety days", days(90), "0.1", "1100"},
		{"just under one eighty", days(179), "0.1", "1100"},
		{"one eighty days", days(180), "0.15", "1150"},
		{"a full year", days(365), "0.15", "1150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := ComputeLoanTerms(principal, applied, applied.Add(tt.duration))
			if !terms.Rate.Equal(decimal.RequireFromString(tt.wantRate)) {
				t.Errorf("rate = %s, want %s", terms.Rate, tt.wantRate)
			}
			if !terms.FinalAmount.Equal(decimal.RequireFromString(tt.wantTotal)) {
				t.Errorf("final amount = %s, want %s", terms.FinalAmount, tt.wantTotal)
			}
		})
	}
}

func TestApplyForLoan(t *testing.T) {
	svc, store, notifier := newLoanService()
	account := store.seedAccount(1, "0.00")

	applied := time.Now()
	target := applied.Add(days(45))

	result, err := svc.ApplyForLoan(context.Background(), 1, account.ID, decimal.RequireFromString("1000"), applied, target)
	if err != nil {
		t.Fatalf("ApplyForLoan() error = %v", err)
	}

	if result.Loan.Status != models.LoanStatusPending {
		t.Errorf("status = %s, want %s", result.Loan.Status, models.LoanStatusPending)
	}
	if !result.Loan.PendingAmount.Equal(decimal.RequireFromString("1050")) {
		t.Errorf("pending amount = %s, want 1050", result.Loan.PendingAmount)
	}
	if result.Warning != "" {
		t.Errorf("unexpected warning: %s", result.Warning)
	}
	if !store.balanceOf(account.ID).IsZero() {
		t.Error("application must not move funds")
	}
	if notifier.count() != 1 {
		t.Errorf("notifications sent = %d, want 1", notifier.count())
	}
}

func TestApplyForLoanNotificationFailureIsNonFatal(t *testing.T) {
	svc, store, notifier := newLoanService()
	notifier.fail = true
	account := store.seedAccount(1, "0.00")

	result, err := svc.ApplyForLoan(context.Background(), 1, account.ID,
		decimal.RequireFromString("1000"), time.Now(), time.Now().Add(days(45)))
	if err != nil {
		t.Fatalf("ApplyForLoan() error = %v", err)
	}
	if result.Warning == "" {
		t.Error("expected a warning when notification delivery fails")
	}
	if _, err := store.GetLoan(context.Background(), result.Loan.ID); err != nil {
		t.Error("application must be recorded even when the notification fails")
	}
}

func TestApplyForLoanGuards(t *testing.T) {
	svc, store, _ := newLoanService()
	account := store.seedAccount(1, "0.00")
	applied := time.Now()

	tests := []struct {
		name      string
		caller    uint
		accountID uint
		principal string
		target    time.Time
		wantErr   error
	}{
		{"zero principal", 1, account.ID, "0", applied.Add(days(30)), domain.ErrInvalidAmount},
		{"target not after applied", 1, account.ID, "1000", applied.Add(-days(1)), domain.ErrInvalidInput},
		{"unknown account", 1, 999, "1000", applied.Add(days(30)), domain.ErrAccountNotFound},
		{"not the owner", 2, account.ID, "1000", applied.Add(days(30)), domain.ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyForLoan(context.Background(), tt.caller, tt.accountID,
				decimal.RequireFromString(tt.principal), applied, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ApplyForLoan() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApproveLoan(t *testing.T) {
	svc, store, _ := newLoanService()
	account := store.seedAccount(1, "0.00")

	applied, err := svc.ApplyForLoan(context.Background(), 1, account.ID,
		decimal.RequireFromString("1000"), time.Now(), time.Now().Add(days(45)))
	if err != nil {
		t.Fatalf("ApplyForLoan() error = %v", err)
	}
	loan := applied.Loan

	result, err := svc.ApproveLoan(context.Background(), loan.ID)
	if err != nil {
		t.Fatalf("ApproveLoan() error = %v", err)
	}

	if result.Loan.Status != models.LoanStatusOpened {
		t.Errorf("status = %s, want %s", result.Loan.Status, models.LoanStatusOpened)
	}
	// The principal is disbursed; interest stays in the pending amount
	if !store.balanceOf(account.ID).Equal(decimal.RequireFromString("1000")) {
		t.Errorf("balance = %s, want 1000", store.balanceOf(account.ID))
	}
	if !result.Loan.PendingAmount.Equal(decimal.RequireFromString("1050")) {
		t.Errorf("pending amount = %s, want 1050", result.Loan.PendingAmount)
	}
	if result.Transaction == nil || result.Transaction.Type != models.TxTypeDeposit {
		t.Error("disbursement must be recorded as a deposit transaction")
	}

	// A loan can only be approved once
	if _, err := svc.ApproveLoan(context.Background(), loan.ID); !errors.Is(err, domain.ErrInvalidLoanStatus) {
		t.Errorf("second approval error = %v, want ErrInvalidLoanStatus", err)
	}
}

func TestRejectLoan(t *testing.T) {
	svc, store, _ := newLoanService()
	account := store.seedAccount(1, "0.00")

	applied, err := svc.ApplyForLoan(context.Background(), 1, account.ID,
		decimal.RequireFromString("1000"), time.Now(), time.Now().Add(days(45)))
	if err != nil {
		t.Fatalf("ApplyForLoan() error = %v", err)
	}
	loan := applied.Loan

	result, err := svc.RejectLoan(context.Background(), loan.ID)
	if err != nil {
		t.Fatalf("RejectLoan() error = %v", err)
	}
	if result.Loan.Status != models.LoanStatusRejected {
		t.Errorf("status = %s, want %s", result.Loan.Status, models.LoanStatusRejected)
	}
	if !store.balanceOf(account.ID).IsZero() {
		t.Error("rejection must not move funds")
	}

	if _, err := svc.ApproveLoan(context.Background(), loan.ID); !errors.Is(err, domain.ErrInvalidLoanStatus) {
		t.Errorf("approval after rejection error = %v, want ErrInvalidLoanStatus", err)
	}
	if _, err := svc.RejectLoan(context.Background(), loan.ID); !errors.Is(err, domain.ErrInvalidLoanStatus) {
		t.Errorf("second rejection error = %v, want ErrInvalidLoanStatus", err)
	}
}

func TestRepayLoan(t *testing.T) {
	svc, store, _ := newLoanService()
	account := store.seedAccount(1, "500.00")

	applied, err := svc.ApplyForLoan(context.Background(), 1, account.ID,
		decimal.RequireFromString("1000"), time.Now(), time.Now().Add(days(45)))
	if err != nil {
		t.Fatalf("ApplyForLoan() error = %v", err)
	}
	loan := applied.Loan
	if _, err := svc.ApproveLoan(context.Background(), loan.ID); err != nil {
		t.Fatalf("ApproveLoan() error = %v", err)
	}
	// Balance now 1500, pending 1050

	partial, err := svc.RepayLoan(context.Background(), 1, loan.ID, decimal.RequireFromString("50"), time.Now())
	if err != nil {
		t.Fatalf("RepayLoan() error = %v", err)
	}
	if partial.Loan.Status != models.LoanStatusOpened {
		t.Errorf("status after partial repayment = %s, want %s", partial.Loan.Status, models.LoanStatusOpened)
	}
	if !partial.Loan.PendingAmount.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("pending amount = %s, want 1000", partial.Loan.PendingAmount)
	}
	if !store.balanceOf(account.ID).Equal(decimal.RequireFromString("1450")) {
		t.Errorf("balance = %s, want 1450", store.balanceOf(account.ID))
	}

	final, err := svc.RepayLoan(context.Background(), 1, loan.ID, decimal.RequireFromString("1000"), time.Now())
	if err != nil {
		t.Fatalf("RepayLoan() error = %v", err)
	}
	if final.Loan.Status != models.LoanStatusClosed {
		t.Errorf("status after full repayment = %s, want %s", final.Loan.Status, models.LoanStatusClosed)
	}
	if final.Loan.RepaidAt == nil {
		t.Error("closed loan must record when it was repaid")
	}
	if !store.balanceOf(account.ID).Equal(decimal.RequireFromString("450")) {
		t.Errorf("balance = %s, want 450", store.balanceOf(account.ID))
	}
	if len(store.repayments) != 2 {
		t.Errorf("repayment records = %d, want 2", len(store.repayments))
	}

	// A closed loan accepts no further payments
	if _, err := svc.RepayLoan(context.Background(), 1, loan.ID, decimal.RequireFromString("1"), time.Now()); !errors.Is(err, domain.ErrInvalidLoanStatus) {
		t.Errorf("repayment on closed loan error = %v, want ErrInvalidLoanStatus", err)
	}
}

func TestRepayLoanGuards(t *testing.T) {
	svc, store, _ := newLoanService()
	account := store.seedAccount(1, "100.00")

	pendingApp, err := svc.ApplyForLoan(context.Background(), 1, account.ID,
		decimal.RequireFromString("1000"), time.Now(), time.Now().Add(days(45)))
	if err != nil {
		t.Fatalf("ApplyForLoan() error = %v", err)
	}
	pendingLoan := pendingApp.Loan

	openApp, err := svc.ApplyForLoan(context.Background(), 1, account.ID,
		decimal.RequireFromString("100"), time.Now(), time.Now().Add(days(10)))
	if err != nil {
		t.Fatalf("ApplyForLoan() error = %v", err)
	}
	openLoan := openApp.Loan
	if _, err := svc.ApproveLoan(context.Background(), openLoan.ID); err != nil {
		t.Fatalf("ApproveLoan() error = %v", err)
	}
	// openLoan: pending 102, due in 10 days

	tests := []struct {
		name    string
		caller  uint
		loanID  uint
		amount  string
		paidAt  time.Time
		wantErr error
	}{
		{"zero amount", 1, openLoan.ID, "0", time.Now(), domain.ErrInvalidAmount},
		{"unknown loan", 1, 999, "10", time.Now(), domain.ErrLoanNotFound},
		{"not the owner", 2, openLoan.ID, "10", time.Now(), domain.ErrAccessDenied},
		{"loan not opened", 1, pendingLoan.ID, "10", time.Now(), domain.ErrInvalidLoanStatus},
		{"over the pending amount", 1, openLoan.ID, "200", time.Now(), domain.ErrInvalidRepaymentAmount},
		{"past the due date", 1, openLoan.ID, "10", time.Now().Add(days(11)), domain.ErrDueDatePassed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RepayLoan(context.Background(), tt.caller, tt.loanID,
				decimal.RequireFromString(tt.amount), tt.paidAt)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RepayLoan() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Insufficient balance refuses the debit even though the loan allows it
	if err := withBalance(store, account.ID, "1.00"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RepayLoan(context.Background(), 1, openLoan.ID, decimal.RequireFromString("50"), time.Now()); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("underfunded repayment error = %v, want ErrInsufficientFunds", err)
	}
}

// withBalance overwrites an account balance directly in the store
func withBalance(store *fakeStore, accountID uint, balance string) error {
	account, err := store.GetAccount(context.Background(), accountID)
	if err != nil {
		return err
	}
	account.Balance = decimal.RequireFromString(balance)
	return store.UpsertAccount(context.Background(), account)
}

func TestGetLoanAccessControl(t *testing.T) {
	svc, store, _ := newLoanService()
	account := store.seedAccount(1, "0.00")

	applied, err := svc.ApplyForLoan(context.Background(), 1, account.ID,
		decimal.RequireFromString("1000"), time.Now(), time.Now().Add(days(45)))
	if err != nil {
		t.Fatalf("ApplyForLoan() error = %v", err)
	}
	loan := applied.Loan

	if _, err := svc.GetLoan(context.Background(), loan.ID, 1); err != nil {
		t.Errorf("owner GetLoan() error = %v", err)
	}
	if _, err := svc.GetLoan(context.Background(), loan.ID, 2); !errors.Is(err, domain.ErrAccessDenied) {
		t.Errorf("stranger GetLoan() error = %v, want ErrAccessDenied", err)
	}
	if _, err := svc.GetLoan(context.Background(), 999, 1); !errors.Is(err, domain.ErrLoanNotFound) {
		t.Errorf("unknown loan error = %v, want ErrLoanNotFound", err)
	}

	if _, err := svc.GetLoansByAccount(context.Background(), account.ID, 2); !errors.Is(err, domain.ErrAccessDenied) {
		t.Errorf("stranger GetLoansByAccount() error = %v, want ErrAccessDenied", err)
	}
	loans, err := svc.GetLoansByAccount(context.Background(), account.ID, 1)
	if err != nil {
		t.Fatalf("GetLoansByAccount() error = %v", err)
	}
	if len(loans) != 1 {
		t.Errorf("loans = %d, want 1", len(loans))
	}
}
