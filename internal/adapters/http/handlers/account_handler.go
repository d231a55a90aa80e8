package handlers

import (
	"strconv"

	"vaultbank/internal/core/services"
	"vaultbank/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// AccountHandler handles account and balance-mutation endpoints
type AccountHandler struct {
	accountService *services.AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// callerID extracts the authenticated user's id from the request context
func callerID(c *fiber.Ctx) uint {
	userID, _ := c.Locals("userID").(uint)
	return userID
}

// parseID parses a numeric path parameter
func parseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	return uint(id), err
}

// OpenAccountRequest represents account opening request
type OpenAccountRequest struct {
	AccountType    string          `json:"account_type"`
	OpeningDeposit decimal.Decimal `json:"opening_deposit"`
	TxnPassword    string          `json:"txn_password"`
}

// Open opens a new account for the caller
// @Summary Open account
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body OpenAccountRequest true "Account data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /accounts [post]
func (h *AccountHandler) Open(c *fiber.Ctx) error {
	var req OpenAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	input := &services.OpenAccountInput{
		AccountType:    req.AccountType,
		OpeningDeposit: req.OpeningDeposit,
		TxnPassword:    req.TxnPassword,
	}

	account, err := h.accountService.OpenAccount(c.Context(), callerID(c), input)
	if err != nil {
		return mapDomainError(c, err)
	}

	return response.Created(c, "Account opened successfully", fiber.Map{
		"account": account.ToResponse(),
	})
}

// List lists the caller's accounts
// @Summary List my accounts
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /accounts [get]
func (h *AccountHandler) List(c *fiber.Ctx) error {
	accounts, err := h.accountService.GetAccountsByUser(c.Context(), callerID(c))
	if err != nil {
		return mapDomainError(c, err)
	}

	out := make([]interface{}, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.ToResponse())
	}

	return response.Success(c, "Accounts retrieved successfully", fiber.Map{
		"accounts": out,
	})
}

// GetByID returns one of the caller's accounts
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetByID(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid account ID")
	}

	account, err := h.accountService.GetAccount(c.Context(), id, callerID(c))
	if err != nil {
		return mapDomainError(c, err)
	}

	return response.Success(c, "Account retrieved successfully", fiber.Map{
		"account": account.ToResponse(),
	})
}

// AmountRequest represents a deposit or withdrawal request
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Deposit credits the account
// @Summary Deposit
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param body body AmountRequest true "Amount"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /accounts/{id}/deposit [post]
func (h *AccountHandler) Deposit(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid account ID")
	}

	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.accountService.Deposit(c.Context(), id, callerID(c), req.Amount)
	if err != nil {
		return mapDomainError(c, err)
	}

	return withWarning(c, "Deposit successful", result.Warning, fiber.Map{
		"account":     result.Account.ToResponse(),
		"transaction": result.Transaction,
	})
}

// Withdraw debits the account
// @Summary Withdraw
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param body body AmountRequest true "Amount"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /accounts/{id}/withdraw [post]
func (h *AccountHandler) Withdraw(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid account ID")
	}

	var req AmountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.accountService.Withdraw(c.Context(), id, callerID(c), req.Amount)
	if err != nil {
		return mapDomainError(c, err)
	}

	return withWarning(c, "Withdrawal successful", result.Warning, fiber.Map{
		"account":     result.Account.ToResponse(),
		"transaction": result.Transaction,
	})
}

// Statement lists the account's transactions
// @Summary Account statement
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(10)
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /accounts/{id}/transactions [get]
func (h *AccountHandler) Statement(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid account ID")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	statement, err := h.accountService.GetStatement(c.Context(), id, callerID(c), page, limit)
	if err != nil {
		return mapDomainError(c, err)
	}

	return response.Success(c, "Statement retrieved successfully", statement)
}

// ChangeTxnPasswordRequest represents a transaction password change
type ChangeTxnPasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangeTxnPassword rotates the account's transaction password
// @Summary Change transaction password
// @Tags Accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param body body ChangeTxnPasswordRequest true "Passwords"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /accounts/{id}/txn-password [put]
func (h *AccountHandler) ChangeTxnPassword(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid account ID")
	}

	var req ChangeTxnPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.accountService.ChangeTxnPassword(c.Context(), id, callerID(c), req.OldPassword, req.NewPassword); err != nil {
		return mapDomainError(c, err)
	}

	return response.Success(c, "Transaction password updated", nil)
}
