package domain

import "errors"

// Common domain errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAccessDenied   = errors.New("access denied")
	ErrInternalServer = errors.New("internal server error")
)

// AccountErrors
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// TransferErrors
var (
	ErrInvalidTransactionType       = errors.New("invalid transaction type")
	ErrTransactionAlreadyInProgress = errors.New("a transfer is already in progress for this account")
	ErrVerificationNotFound         = errors.New("verification not found")
	ErrInvalidVerificationCode      = errors.New("invalid verification code")
	ErrVerificationExpired          = errors.New("verification code has expired")
	ErrTransactionNotFound          = errors.New("pending transaction not found")
	ErrTransactionProcessed         = errors.New("pending transaction already processed")
	ErrSameAccountTransfer          = errors.New("cannot transfer to the same account")
)

// LoanErrors
var (
	ErrLoanNotFound           = errors.New("loan not found")
	ErrInvalidLoanStatus      = errors.New("loan is not in the expected status")
	ErrInvalidRepaymentAmount = errors.New("repayment exceeds pending amount")
	ErrDueDatePassed          = errors.New("payment date is past the due date")
)
