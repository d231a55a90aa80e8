package handlers

import (
	"errors"

	"vaultbank/internal/core/domain"
	"vaultbank/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// mapDomainError translates a domain error kind into the matching HTTP
// response. Every expected failure gets a specific status; anything else is
// an internal error.
func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return response.NotFound(c, "Account not found")
	case errors.Is(err, domain.ErrLoanNotFound):
		return response.NotFound(c, "Loan not found")
	case errors.Is(err, domain.ErrVerificationNotFound):
		return response.NotFound(c, "No transfer awaiting verification")
	case errors.Is(err, domain.ErrTransactionNotFound):
		return response.NotFound(c, "Pending transaction not found")
	case errors.Is(err, domain.ErrAccessDenied):
		return response.Forbidden(c, "You do not own this resource")
	case errors.Is(err, domain.ErrAccountInactive):
		return response.UnprocessableEntity(c, "Account is inactive")
	case errors.Is(err, domain.ErrInvalidLoanStatus):
		return response.UnprocessableEntity(c, "Loan is not in the expected status")
	case errors.Is(err, domain.ErrVerificationExpired):
		return response.UnprocessableEntity(c, "Verification code has expired")
	case errors.Is(err, domain.ErrTransactionAlreadyInProgress):
		return response.Conflict(c, "A transfer is already in progress for this account")
	case errors.Is(err, domain.ErrTransactionProcessed):
		return response.Conflict(c, "Pending transaction already processed")
	case errors.Is(err, domain.ErrInvalidAmount):
		return response.BadRequest(c, "Amount must be greater than 0")
	case errors.Is(err, domain.ErrInvalidTransactionType):
		return response.BadRequest(c, "Unsupported transfer channel")
	case errors.Is(err, domain.ErrInvalidVerificationCode):
		return response.BadRequest(c, "Invalid verification code")
	case errors.Is(err, domain.ErrSameAccountTransfer):
		return response.BadRequest(c, "Cannot transfer to the same account")
	case errors.Is(err, domain.ErrInvalidRepaymentAmount):
		return response.BadRequest(c, "Repayment exceeds the pending amount")
	case errors.Is(err, domain.ErrDueDatePassed):
		return response.BadRequest(c, "Payment date is past the due date")
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, "Invalid input")
	case errors.Is(err, domain.ErrInsufficientFunds):
		return response.UnprocessableEntity(c, "Insufficient funds")
	default:
		return response.InternalServerError(c, "Something went wrong")
	}
}

// withWarning sends a success response, attaching the warning when one is set
func withWarning(c *fiber.Ctx, message, warning string, data interface{}) error {
	if warning != "" {
		return response.SuccessWithWarning(c, message, warning, data)
	}
	return response.Success(c, message, data)
}
