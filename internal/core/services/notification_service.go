package services

import (
	"fmt"
	"time"

	"vaultbank/internal/config"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

// Notifier sends a message to a user address. Delivery is best-effort from
// the ledger's perspective; a failure never unwinds a committed mutation.
type Notifier interface {
	Notify(address, subject, body string) error
}

// EmailNotifier delivers notifications over SMTP
type EmailNotifier struct {
	dialer  *gomail.Dialer
	from    string
	enabled bool
}

// NewEmailNotifier creates a new email notifier. It is disabled (sends become
// no-ops) when no SMTP host is configured.
func NewEmailNotifier(cfg config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		enabled: cfg.Host != "",
	}
}

// Notify sends an email
func (n *EmailNotifier) Notify(address, subject, body string) error {
	if !n.enabled {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", address)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// NotificationService formats ledger event messages and hands them to the
// Notifier.
type NotificationService struct {
	notifier Notifier
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifier Notifier) *NotificationService {
	return &NotificationService{notifier: notifier}
}

// NotifyBalanceChange sends notification after a deposit or withdrawal
func (s *NotificationService) NotifyBalanceChange(address, txType string, amount, newBalance decimal.Decimal) error {
	subject := fmt.Sprintf("%s confirmation", txType)
	body := fmt.Sprintf(`
		<h2>%s confirmation</h2>
		<p>Amount: %s</p>
		<p>New balance: %s</p>
		<p>Date: %s</p>
	`, txType, amount.StringFixed(2), newBalance.StringFixed(2), time.Now().Format("2006-01-02 15:04:05"))

	return s.notifier.Notify(address, subject, body)
}

// NotifyVerificationCode sends the one-time transfer code to the source owner
func (s *NotificationService) NotifyVerificationCode(address, code, channelType string, amount decimal.Decimal) error {
	subject := "Transfer verification code"
	body := fmt.Sprintf(`
		<h2>Verify your %s transfer</h2>
		<p>Amount: %s</p>
		<p>Your one-time code: <b>%s</b></p>
		<p>The code expires in 5 minutes.</p>
	`, channelType, amount.StringFixed(2), code)

	return s.notifier.Notify(address, subject, body)
}

// NotifyTransferSettled sends notifications after funds moved
func (s *NotificationService) NotifyTransferSettled(address, channelType string, amount, newBalance decimal.Decimal) error {
	subject := fmt.Sprintf("%s transfer settled", channelType)
	body := fmt.Sprintf(`
		<h2>%s transfer settled</h2>
		<p>Amount: %s</p>
		<p>New balance: %s</p>
		<p>Date: %s</p>
	`, channelType, amount.StringFixed(2), newBalance.StringFixed(2), time.Now().Format("2006-01-02 15:04:05"))

	return s.notifier.Notify(address, subject, body)
}

// NotifyTransferPending tells the source owner the transfer awaits review
func (s *NotificationService) NotifyTransferPending(address, channelType string, amount decimal.Decimal) error {
	subject := fmt.Sprintf("%s transfer pending approval", channelType)
	body := fmt.Sprintf(`
		<h2>%s transfer pending approval</h2>
		<p>Amount: %s</p>
		<p>Your transfer was verified and is waiting for review. Funds move once it is approved.</p>
	`, channelType, amount.StringFixed(2))

	return s.notifier.Notify(address, subject, body)
}

// NotifyTransferRejected tells the source owner a reviewer rejected the transfer
func (s *NotificationService) NotifyTransferRejected(address, channelType string, amount decimal.Decimal) error {
	subject := fmt.Sprintf("%s transfer rejected", channelType)
	body := fmt.Sprintf(`
		<h2>%s transfer rejected</h2>
		<p>Amount: %s</p>
		<p>No funds were moved. Please contact support if this is unexpected.</p>
	`, channelType, amount.StringFixed(2))

	return s.notifier.Notify(address, subject, body)
}

// NotifyLoanApplied confirms a loan application was received
func (s *NotificationService) NotifyLoanApplied(address string, principal, repayable decimal.Decimal, dueDate time.Time) error {
	subject := "Loan application received"
	body := fmt.Sprintf(`
		<h2>Loan application received</h2>
		<p>Principal: %s</p>
		<p>Total repayable: %s</p>
		<p>Due date: %s</p>
		<p>You will be notified once the application is reviewed.</p>
	`, principal.StringFixed(2), repayable.StringFixed(2), dueDate.Format("2006-01-02"))

	return s.notifier.Notify(address, subject, body)
}

// NotifyLoanApproved tells the owner the principal was disbursed
func (s *NotificationService) NotifyLoanApproved(address string, newBalance, repayable decimal.Decimal, dueDate time.Time) error {
	subject := "Loan approved"
	body := fmt.Sprintf(`
		<h2>Loan approved</h2>
		<p>New balance: %s</p>
		<p>Amount to repay: %s</p>
		<p>Due date: %s</p>
	`, newBalance.StringFixed(2), repayable.StringFixed(2), dueDate.Format("2006-01-02"))

	return s.notifier.Notify(address, subject, body)
}

// NotifyLoanRejected tells the applicant the loan was rejected
func (s *NotificationService) NotifyLoanRejected(address string, principal decimal.Decimal) error {
	subject := "Loan application rejected"
	body := fmt.Sprintf(`
		<h2>Loan application rejected</h2>
		<p>Principal requested: %s</p>
		<p>No funds were disbursed.</p>
	`, principal.StringFixed(2))

	return s.notifier.Notify(address, subject, body)
}

// NotifyLoanRepayment confirms a repayment, including closure when fully repaid
func (s *NotificationService) NotifyLoanRepayment(address string, amount, remaining decimal.Decimal, closed bool) error {
	subject := "Loan repayment received"
	status := fmt.Sprintf("<p>Remaining: %s</p>", remaining.StringFixed(2))
	if closed {
		subject = "Loan fully repaid"
		status = "<p>Congratulations! Your loan is now closed.</p>"
	}
	body := fmt.Sprintf(`
		<h2>Loan repayment received</h2>
		<p>Amount: %s</p>
		%s
	`, amount.StringFixed(2), status)

	return s.notifier.Notify(address, subject, body)
}
