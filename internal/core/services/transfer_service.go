package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"vaultbank/internal/adapters/persistence/models"
	"vaultbank/internal/adapters/persistence/repositories"
	"vaultbank/internal/core/domain"
	"vaultbank/internal/pkg/keylock"

	"github.com/shopspring/decimal"
)

// VerificationWindow is how long a transfer verification code stays valid.
// Expiry is evaluated lazily on the next initiation or confirmation, never by
// a background sweep.
const VerificationWindow = 5 * time.Minute

// Transfer statuses reported to callers
const (
	TransferStatusVerificationPending = "VERIFICATION_PENDING"
	TransferStatusSettled             = "SETTLED"
	TransferStatusPendingApproval     = "PENDING_APPROVAL"
)

// TransferService coordinates the two-phase transfer settlement: initiate
// (verify + hold) then confirm (apply), with a staff-approval path for
// channels that require review.
type TransferService struct {
	store  repositories.LedgerStore
	notify *NotificationService
	locks  *keylock.KeyLock
}

// NewTransferService creates a new transfer service
func NewTransferService(store repositories.LedgerStore, notify *NotificationService, locks *keylock.KeyLock) *TransferService {
	return &TransferService{
		store:  store,
		notify: notify,
		locks:  locks,
	}
}

// TransferResult reports the state a transfer reached plus the records it
// produced. Warning is set when a post-commit notification failed.
type TransferResult struct {
	Status      string                     `json:"status"`
	Transaction *models.Transaction        `json:"transaction,omitempty"`
	Pending     *models.PendingTransaction `json:"pending_transaction,omitempty"`
	Warning     string                     `json:"warning,omitempty"`
}

// selfVerifying reports whether the channel settles immediately on
// confirmation, without staff review.
func selfVerifying(channelType string) bool {
	return channelType == models.TxTypeIMPS
}

func validChannel(channelType string) bool {
	switch channelType {
	case models.TxTypeIMPS, models.TxTypeNEFT, models.TxTypeRTGS:
		return true
	}
	return false
}

// InitiateTransfer validates the transfer and parks it behind a one-time
// verification code. No balance is touched until the caller proves control of
// the source account by confirming the code.
func (s *TransferService) InitiateTransfer(ctx context.Context, callerUserID, sourceID, receiverID uint, amount decimal.Decimal, channelType string) (*TransferResult, error) {
	if !validChannel(channelType) {
		return nil, domain.ErrInvalidTransactionType
	}
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if sourceID == receiverID {
		return nil, domain.ErrSameAccountTransfer
	}

	s.locks.Lock(sourceID)
	defer s.locks.Unlock(sourceID)

	source, err := s.loadOwnedActiveAccount(ctx, sourceID, callerUserID)
	if err != nil {
		return nil, err
	}

	receiver, err := s.store.GetAccount(ctx, receiverID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	if !receiver.IsActive {
		return nil, domain.ErrAccountInactive
	}

	if source.Balance.LessThan(amount) {
		return nil, domain.ErrInsufficientFunds
	}

	// At most one in-flight transfer per source account. An expired leftover
	// does not count; it is cleaned up here, lazily.
	if existing, err := s.store.GetVerificationByAccount(ctx, sourceID); err == nil {
		if !existing.IsExpired(time.Now(), VerificationWindow) {
			return nil, domain.ErrTransactionAlreadyInProgress
		}
		if err := s.store.DeleteVerification(ctx, existing.ID); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	code, err := generateVerificationCode(6)
	if err != nil {
		return nil, err
	}

	verification := &models.TransactionVerification{
		AccountID:   sourceID,
		ReceiverID:  receiverID,
		Amount:      amount,
		ChannelType: channelType,
		Code:        code,
	}
	if err := s.store.InsertVerification(ctx, verification); err != nil {
		return nil, err
	}

	result := &TransferResult{Status: TransferStatusVerificationPending}
	if err := s.notify.NotifyVerificationCode(ownerAddress(source), code, channelType, amount); err != nil {
		log.Printf("verification code notification failed for account %d: %v", sourceID, err)
		result.Warning = "transfer initiated but the verification code could not be delivered"
	}

	return result, nil
}

// ConfirmTransfer checks the one-time code and either settles immediately
// (IMPS) or hands the transfer to staff review (NEFT/RTGS).
func (s *TransferService) ConfirmTransfer(ctx context.Context, callerUserID, sourceID uint, code string) (*TransferResult, error) {
	// Optimistic read to learn the receiver id for ordered locking; the
	// verification is re-read and validated under the locks.
	peek, err := s.store.GetVerificationByAccount(ctx, sourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrVerificationNotFound
		}
		return nil, err
	}

	s.locks.LockAll(sourceID, peek.ReceiverID)
	defer s.locks.UnlockAll(sourceID, peek.ReceiverID)

	verification, err := s.store.GetVerificationByAccount(ctx, sourceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrVerificationNotFound
		}
		return nil, err
	}
	// The peeked intent may have been consumed and replaced while waiting
	// for the locks; the replacement's receiver lock is not held, so refuse
	// to act on it.
	if verification.ID != peek.ID {
		return nil, domain.ErrVerificationNotFound
	}

	source, err := s.loadOwnedActiveAccount(ctx, sourceID, callerUserID)
	if err != nil {
		return nil, err
	}

	if verification.Code != code {
		return nil, domain.ErrInvalidVerificationCode
	}
	if verification.IsExpired(time.Now(), VerificationWindow) {
		if err := s.store.DeleteVerification(ctx, verification.ID); err != nil {
			return nil, err
		}
		return nil, domain.ErrVerificationExpired
	}

	if selfVerifying(verification.ChannelType) {
		return s.settle(ctx, source, verification)
	}
	return s.parkForApproval(ctx, source, verification)
}

// settle moves the funds for a self-verifying channel: debit source, credit
// receiver, record the terminal transaction, consume the verification.
func (s *TransferService) settle(ctx context.Context, source *models.Account, v *models.TransactionVerification) (*TransferResult, error) {
	receiver, err := s.store.GetAccount(ctx, v.ReceiverID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	tx := newTransaction(source.ID, receiver.ID, v.Amount, v.ChannelType,
		fmt.Sprintf("%s transfer to account %d", v.ChannelType, receiver.ID))

	err = s.store.Atomically(ctx, func(store repositories.LedgerStore) error {
		// Fixed update order: source before receiver.
		if err := applyDebit(ctx, store, source, v.Amount); err != nil {
			return err
		}
		if err := applyCredit(ctx, store, receiver, v.Amount); err != nil {
			return err
		}
		if err := store.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		return store.DeleteVerification(ctx, v.ID)
	})
	if err != nil {
		return nil, err
	}

	result := &TransferResult{Status: TransferStatusSettled, Transaction: tx}
	result.Warning = s.notifyBothParties(source, receiver, v.ChannelType, v.Amount)

	return result, nil
}

// parkForApproval converts a verified NEFT/RTGS transfer into a pending
// transaction awaiting staff review. Balances stay untouched.
func (s *TransferService) parkForApproval(ctx context.Context, source *models.Account, v *models.TransactionVerification) (*TransferResult, error) {
	pending := &models.PendingTransaction{
		AccountID:   v.AccountID,
		ReceiverID:  v.ReceiverID,
		Amount:      v.Amount,
		ChannelType: v.ChannelType,
	}

	err := s.store.Atomically(ctx, func(store repositories.LedgerStore) error {
		if err := store.UpsertPendingTransaction(ctx, pending); err != nil {
			return err
		}
		return store.DeleteVerification(ctx, v.ID)
	})
	if err != nil {
		return nil, err
	}

	result := &TransferResult{Status: TransferStatusPendingApproval, Pending: pending}
	if err := s.notify.NotifyTransferPending(ownerAddress(source), v.ChannelType, v.Amount); err != nil {
		log.Printf("pending transfer notification failed for account %d: %v", source.ID, err)
		result.Warning = "transfer queued for approval but notification could not be delivered"
	}

	return result, nil
}

// ApprovePendingTransaction settles a reviewed transfer: debit source, credit
// receiver, mark the request approved. Reviewer-only.
func (s *TransferService) ApprovePendingTransaction(ctx context.Context, requestID uint) (*TransferResult, error) {
	peek, err := s.store.GetPendingTransaction(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	if peek.IsProcessed() {
		return nil, domain.ErrTransactionProcessed
	}

	s.locks.LockAll(peek.AccountID, peek.ReceiverID)
	defer s.locks.UnlockAll(peek.AccountID, peek.ReceiverID)

	// Re-read and re-check the terminal guard under the locks so two
	// concurrent reviews cannot settle the same request twice.
	pending, err := s.store.GetPendingTransaction(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	if pending.IsProcessed() {
		return nil, domain.ErrTransactionProcessed
	}

	source, err := s.store.GetAccount(ctx, pending.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	receiver, err := s.store.GetAccount(ctx, pending.ReceiverID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}

	tx := newTransaction(source.ID, receiver.ID, pending.Amount, pending.ChannelType,
		fmt.Sprintf("%s transfer to account %d", pending.ChannelType, receiver.ID))

	err = s.store.Atomically(ctx, func(store repositories.LedgerStore) error {
		if err := applyDebit(ctx, store, source, pending.Amount); err != nil {
			return err
		}
		if err := applyCredit(ctx, store, receiver, pending.Amount); err != nil {
			return err
		}
		if err := store.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		pending.Approved = true
		return store.UpsertPendingTransaction(ctx, pending)
	})
	if err != nil {
		return nil, err
	}

	result := &TransferResult{Status: TransferStatusSettled, Transaction: tx, Pending: pending}
	result.Warning = s.notifyBothParties(source, receiver, pending.ChannelType, pending.Amount)

	return result, nil
}

// RejectPendingTransaction marks a reviewed transfer rejected. No balance
// changes. Reviewer-only.
func (s *TransferService) RejectPendingTransaction(ctx context.Context, requestID uint) (*TransferResult, error) {
	peek, err := s.store.GetPendingTransaction(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	if peek.IsProcessed() {
		return nil, domain.ErrTransactionProcessed
	}

	// Rejection takes the same locks as approval; approved and rejected are
	// mutually exclusive, so the guard must be re-checked under them.
	s.locks.LockAll(peek.AccountID, peek.ReceiverID)
	defer s.locks.UnlockAll(peek.AccountID, peek.ReceiverID)

	pending, err := s.store.GetPendingTransaction(ctx, requestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	if pending.IsProcessed() {
		return nil, domain.ErrTransactionProcessed
	}

	pending.Rejected = true
	if err := s.store.UpsertPendingTransaction(ctx, pending); err != nil {
		return nil, err
	}

	result := &TransferResult{Status: TransferStatusPendingApproval, Pending: pending}

	source, err := s.store.GetAccount(ctx, pending.AccountID)
	if err == nil {
		if err := s.notify.NotifyTransferRejected(ownerAddress(source), pending.ChannelType, pending.Amount); err != nil {
			log.Printf("rejection notification failed for account %d: %v", pending.AccountID, err)
			result.Warning = "transfer rejected but notification could not be delivered"
		}
	}

	return result, nil
}

// loadOwnedActiveAccount mirrors the account service guard for the source
// side of a transfer.
func (s *TransferService) loadOwnedActiveAccount(ctx context.Context, accountID, callerUserID uint) (*models.Account, error) {
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

// notifyBothParties tells source and receiver owners their new balances after
// a settlement. Returns a warning string when any delivery failed.
func (s *TransferService) notifyBothParties(source, receiver *models.Account, channelType string, amount decimal.Decimal) string {
	var failed bool
	if err := s.notify.NotifyTransferSettled(ownerAddress(source), channelType, amount, source.Balance); err != nil {
		log.Printf("settlement notification failed for account %d: %v", source.ID, err)
		failed = true
	}
	if err := s.notify.NotifyTransferSettled(ownerAddress(receiver), channelType, amount, receiver.Balance); err != nil {
		log.Printf("settlement notification failed for account %d: %v", receiver.ID, err)
		failed = true
	}
	if failed {
		return "transfer settled but a notification could not be delivered"
	}
	return ""
}

// generateVerificationCode generates a cryptographically secure numeric code
func generateVerificationCode(length int) (string, error) {
	code := ""
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code += fmt.Sprintf("%d", n.Int64())
	}
	return code, nil
}
