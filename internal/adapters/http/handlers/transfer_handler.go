package handlers

import (
	"vaultbank/internal/core/services"
	"vaultbank/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// TransferHandler handles transfer initiation, confirmation and review endpoints
type TransferHandler struct {
	transferService *services.TransferService
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(transferService *services.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

// InitiateTransferRequest represents a transfer initiation request
type InitiateTransferRequest struct {
	SourceAccountID   uint            `json:"source_account_id"`
	ReceiverAccountID uint            `json:"receiver_account_id"`
	Amount            decimal.Decimal `json:"amount"`
	ChannelType       string          `json:"channel_type"`
}

// Initiate starts a transfer and sends the verification code
// @Summary Initiate transfer
// @Tags Transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body InitiateTransferRequest true "Transfer data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /transfers [post]
func (h *TransferHandler) Initiate(c *fiber.Ctx) error {
	var req InitiateTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.transferService.InitiateTransfer(c.Context(), callerID(c),
		req.SourceAccountID, req.ReceiverAccountID, req.Amount, req.ChannelType)
	if err != nil {
		return mapDomainError(c, err)
	}

	return withWarning(c, "Verification code sent", result.Warning, result)
}

// ConfirmTransferRequest represents a transfer confirmation request
type ConfirmTransferRequest struct {
	SourceAccountID uint   `json:"source_account_id"`
	Code            string `json:"code"`
}

// Confirm settles or queues a transfer once the verification code checks out
// @Summary Confirm transfer
// @Tags Transfers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ConfirmTransferRequest true "Verification code"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /transfers/confirm [post]
func (h *TransferHandler) Confirm(c *fiber.Ctx) error {
	var req ConfirmTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.transferService.ConfirmTransfer(c.Context(), callerID(c), req.SourceAccountID, req.Code)
	if err != nil {
		return mapDomainError(c, err)
	}

	message := "Transfer settled"
	if result.Status == services.TransferStatusPendingApproval {
		message = "Transfer queued for approval"
	}

	return withWarning(c, message, result.Warning, result)
}

// Approve settles a pending NEFT/RTGS transfer after review
// @Summary Approve pending transfer
// @Tags Transfers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Pending transaction ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /transfers/pending/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid transaction ID")
	}

	result, err := h.transferService.ApprovePendingTransaction(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}

	return withWarning(c, "Transfer approved and settled", result.Warning, result)
}

// Reject marks a pending NEFT/RTGS transfer rejected
// @Summary Reject pending transfer
// @Tags Transfers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Pending transaction ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /transfers/pending/{id}/reject [post]
func (h *TransferHandler) Reject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid transaction ID")
	}

	result, err := h.transferService.RejectPendingTransaction(c.Context(), id)
	if err != nil {
		return mapDomainError(c, err)
	}

	return withWarning(c, "Transfer rejected", result.Warning, result)
}
