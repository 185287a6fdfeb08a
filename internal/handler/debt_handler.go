package handler

import (
	"creditledger/internal/service"
	"creditledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateDebt
// POST /api/v1/debts
func (h *Handler) CreateDebt(c *gin.Context) {
	var req service.CreateDebtRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.debtService.CreateDebt(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, result)
}

// GetDebt
// GET /api/v1/debts/:id
func (h *Handler) GetDebt(c *gin.Context) {
	debtID, ok := pathID(c, "id")
	if !ok {
		return
	}

	view, err := h.debtService.GetDebt(c.Request.Context(), debtID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, view)
}

// ApplyPayment
// POST /api/v1/debts/:id/payments
func (h *Handler) ApplyPayment(c *gin.Context) {
	debtID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ApplyPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.ApplyPayment(c.Request.Context(), debtID, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, result)
}

// ListPayments returns the payments newest first.
// GET /api/v1/debts/:id/payments
func (h *Handler) ListPayments(c *gin.Context) {
	debtID, ok := pathID(c, "id")
	if !ok {
		return
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), debtID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, payments)
}

// CompareOnChain
// GET /api/v1/debts/:id/on-chain
func (h *Handler) CompareOnChain(c *gin.Context) {
	debtID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.paymentService.CompareOnChain(c.Request.Context(), debtID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

// ApproveDebt
// POST /api/v1/debts/:id/approve
func (h *Handler) ApproveDebt(c *gin.Context) {
	debtID, ok := pathID(c, "id")
	if !ok {
		return
	}

	debt, err := h.approvalService.Approve(c.Request.Context(), debtID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, debt)
}

// RejectDebt deletes the pending debt.
// POST /api/v1/debts/:id/reject
func (h *Handler) RejectDebt(c *gin.Context) {
	debtID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.approvalService.Reject(c.Request.Context(), debtID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"debt_id": debtID,
		"deleted": true,
	})
}
