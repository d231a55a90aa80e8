package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// Identity boundary
// ============================================================

// User represents users table. Registration and credentials live outside the
// ledger engine; only identity and role are needed here.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Role      string         `gorm:"size:20;default:'USER'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// Roles
const (
	RoleUser  = "USER"
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

// ============================================================
// Ledger tables
// ============================================================

// Account represents accounts table. Balance only changes through a recorded
// Transaction and is never negative.
type Account struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	AccountType string          `gorm:"size:20;not null" json:"account_type"`
	Balance     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
	TxnPassword string          `gorm:"size:255;not null" json:"-"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Owner *User `gorm:"foreignKey:UserID" json:"owner,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

// Account types
const (
	AccountTypeSavings = "SAVINGS"
	AccountTypeCurrent = "CURRENT"
	AccountTypeSalary  = "SALARY"
)

// AccountResponse DTO
type AccountResponse struct {
	ID          uint            `json:"id"`
	UserID      uint            `json:"user_id"`
	AccountType string          `json:"account_type"`
	Balance     decimal.Decimal `json:"balance"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (a *Account) ToResponse() *AccountResponse {
	return &AccountResponse{
		ID:          a.ID,
		UserID:      a.UserID,
		AccountType: a.AccountType,
		Balance:     a.Balance,
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt,
	}
}

// Transaction represents transactions table. Rows are immutable once created;
// corrections are new transactions, never edits.
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Reference   string          `gorm:"size:36;uniqueIndex;not null" json:"reference"`
	AccountID   uint            `gorm:"not null;index" json:"account_id"`
	ReceiverID  uint            `gorm:"not null;index" json:"receiver_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Type        string          `gorm:"size:20;not null" json:"type"`
	Description string          `gorm:"type:text" json:"description"`
	Recurring   bool            `gorm:"default:false" json:"recurring"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Account  *Account `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Receiver *Account `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// Transaction types
const (
	TxTypeDeposit     = "Deposit"
	TxTypeWithdraw    = "Withdraw"
	TxTypeIMPS        = "IMPS"
	TxTypeNEFT        = "NEFT"
	TxTypeRTGS        = "RTGS"
	TxTypeLoanPayment = "Loan Payment"
)

// TransactionVerification represents an in-flight, unsettled transfer intent.
// At most one outstanding row per source account; deleted on settlement or
// lazily on expiry.
type TransactionVerification struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AccountID   uint            `gorm:"not null;uniqueIndex" json:"account_id"`
	ReceiverID  uint            `gorm:"not null" json:"receiver_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	ChannelType string          `gorm:"size:10;not null" json:"channel_type"`
	Code        string          `gorm:"size:10;not null" json:"-"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (TransactionVerification) TableName() string {
	return "transaction_verifications"
}

// IsExpired reports whether the verification window has closed.
func (v *TransactionVerification) IsExpired(now time.Time, window time.Duration) bool {
	return now.After(v.CreatedAt.Add(window))
}

// PendingTransaction represents a transfer that passed verification but waits
// for staff review. Approved and Rejected are mutually exclusive and terminal.
type PendingTransaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AccountID   uint            `gorm:"not null;index" json:"account_id"`
	ReceiverID  uint            `gorm:"not null" json:"receiver_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	ChannelType string          `gorm:"size:10;not null" json:"channel_type"`
	Approved    bool            `gorm:"default:false" json:"approved"`
	Rejected    bool            `gorm:"default:false" json:"rejected"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PendingTransaction) TableName() string {
	return "pending_transactions"
}

// IsProcessed reports whether the request reached a terminal state.
func (p *PendingTransaction) IsProcessed() bool {
	return p.Approved || p.Rejected
}

// Loan represents loans table.
type Loan struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	AccountID     uint            `gorm:"not null;index" json:"account_id"`
	Principal     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"principal"`
	PendingAmount decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"pending_amount"`
	Status        string          `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	AppliedAt     time.Time       `gorm:"type:date;not null" json:"applied_at"`
	DueDate       time.Time       `gorm:"type:date;not null" json:"due_date"`
	RepaidAt      *time.Time      `json:"repaid_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Account    *Account        `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Repayments []LoanRepayment `gorm:"foreignKey:LoanID" json:"repayments,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// Loan statuses. Transitions are one-directional:
// PENDING -> OPENED -> CLOSED, or PENDING -> REJECTED.
const (
	LoanStatusPending  = "PENDING"
	LoanStatusOpened   = "OPENED"
	LoanStatusRejected = "REJECTED"
	LoanStatusClosed   = "CLOSED"
)

// LoanResponse DTO
type LoanResponse struct {
	ID            uint            `json:"id"`
	AccountID     uint            `json:"account_id"`
	Principal     decimal.Decimal `json:"principal"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	Status        string          `json:"status"`
	AppliedAt     time.Time       `json:"applied_at"`
	DueDate       time.Time       `json:"due_date"`
	RepaidAt      *time.Time      `json:"repaid_at,omitempty"`
}

func (l *Loan) ToResponse() *LoanResponse {
	return &LoanResponse{
		ID:            l.ID,
		AccountID:     l.AccountID,
		Principal:     l.Principal,
		PendingAmount: l.PendingAmount,
		Status:        l.Status,
		AppliedAt:     l.AppliedAt,
		DueDate:       l.DueDate,
		RepaidAt:      l.RepaidAt,
	}
}

// LoanRepayment represents loan_repayments table. Immutable, always tied to
// exactly one loan.
type LoanRepayment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	LoanID    uint            `gorm:"not null;index" json:"loan_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	PaidAt    time.Time       `gorm:"type:date;not null" json:"paid_at"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Loan *Loan `gorm:"foreignKey:LoanID" json:"loan,omitempty"`
}

func (LoanRepayment) TableName() string {
	return "loan_repayments"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all ledger tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Account{},
		&Transaction{},
		&TransactionVerification{},
		&PendingTransaction{},
		&Loan{},
		&LoanRepayment{},
	)
}
