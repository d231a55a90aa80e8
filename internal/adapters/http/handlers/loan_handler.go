package handlers

import (
	"time"

	"vaultbank/internal/core/services"
	"vaultbank/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// LoanHandler handles loan lifecycle endpoints
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
	}
}

const dateLayout = "2006-01-02"

// ApplyLoanRequest represents a loan application
type ApplyLoanRequest struct {
	AccountID  uint            `json:"account_id"`
	Principal  decimal.Decimal `json:"principal"`
	TargetDate string          `json:"target_date"`
}

// Apply files a loan application
// @Summary Apply for a loan
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ApplyLoanRequest true "Loan data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Apply(c *fiber.Ctx) error {
	var req ApplyLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	targetDate, err := time.Parse(dateLayout, req.TargetDate)
	if err != nil {
		return response.BadRequest(c, "target_date must be YYYY-MM-DD")
	}

	result, err := h.loanService.ApplyForLoan(c.Context(), callerID(c), req.AccountID, req.Principal, time.Now(), targetDate)
	if err != nil {
		return mapDomainError(c, err)
	}

	data := fiber.Map{"loan": result.Loan.ToResponse()}
	if result.Warning != "" {
		return response.CreatedWithWarning(c, "Loan application submitted", result.Warning, data)
	}
	return response.Created(c, "Loan application submitted", data)
}

// QuoteRequest represents an interest quote request
type QuoteRequest struct {
	Principal  decimal.Decimal `json:"principal"`
	TargetDate string          `json:"target_date"`
}

// Quote computes the repayable amount for a would-be loan without filing it
// @Summary Quote loan terms
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body QuoteRequest true "Quote data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans/quote [post]
func (h *LoanHandler) Quote(c *fiber.Ctx) error {
	var req QuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if !req.Principal.IsPositive() {
		return response.BadRequest(c, "Principal must be greater than 0")
	}

	targetDate, err := time.Parse(dateLayout, req.TargetDate)
	if err != nil {
		return response.BadRequest(c, "target_date must be YYYY-MM-DD")
	}
	now := time.Now()
	if !targetDate.After(now) {
		return response.BadRequest(c, "target_date must be in the future")
	}

	terms := services.ComputeLoanTerms(req.Principal, now, targetDate)

	return response.Success(c, "Loan terms computed", fiber.Map{
		"terms": terms,
	})
}

// GetByID returns one of the caller's loans
// @Summary Get loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) GetByID(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.GetLoan(c.Context(), id, callerID(c))
	if err != nil {
		return mapDomainError(c, err)
	}

	return response.Success(c, "Loan retrieved successfully", fiber.Map{
		"loan": loan.ToResponse(),
	})
}

// ListByAccount lists loans on one of the caller's accounts
// @Summary List loans by account
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /accounts/{id}/loans [get]
func (h *LoanHandler) ListByAccount(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid account ID")
	}

	loans, err := h.loanService.GetLoansByAccount(c.Context(), id, callerID(c))
	if err != nil {
		return mapDomainError(c, err)
	}

	out := make([]interface{}, 0, len(loans))
	for _, l := range loans {
		out = append(out, l.ToResponse())
	}

	return response.Success(c, "Loans retrieved successfully", fiber.Map{
		"loans": out,
	})
}

// Approve opens a pending loan and disburses the principal
// @Summary Approve loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/approve [post]
func (h *LoanHandler) Approve(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	result, err := h.loanService.ApproveLoan(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}

	return withWarning(c, "Loan approved", result.Warning, fiber.Map{
		"loan":        result.Loan.ToResponse(),
		"transaction": result.Transaction,
	})
}

// Reject rejects a pending loan
// @Summary Reject loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/reject [post]
func (h *LoanHandler) Reject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	result, err := h.loanService.RejectLoan(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}

	return withWarning(c, "Loan rejected", result.Warning, fiber.Map{
		"loan": result.Loan.ToResponse(),
	})
}

// RepayLoanRequest represents a loan repayment
type RepayLoanRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Repay applies a repayment to an opened loan
// @Summary Repay loan
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body RepayLoanRequest true "Repayment amount"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/repay [post]
func (h *LoanHandler) Repay(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req RepayLoanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.loanService.RepayLoan(c.Context(), callerID(c), id, req.Amount, time.Now())
	if err != nil {
		return mapDomainError(c, err)
	}

	return withWarning(c, "Repayment recorded", result.Warning, fiber.Map{
		"loan":        result.Loan.ToResponse(),
		"transaction": result.Transaction,
	})
}
