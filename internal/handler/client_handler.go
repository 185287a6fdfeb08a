package handler

import (
	"creditledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// ClientScore scores the client against one lender's debts. Without userId,
// or with 0, the debts of every lender are scored together; an absent filter
// never falls back to the empty-history score.
// GET /api/v1/clients/:id/score?userId=
func (h *Handler) ClientScore(c *gin.Context) {
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := queryUserID(c)
	if !ok {
		return
	}

	score, err := h.scoreService.ScoreClient(c.Request.Context(), clientID, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, score)
}

// ClientDebts is the client's history without debts pending approval.
// GET /api/v1/clients/:id/debts?userId=
func (h *Handler) ClientDebts(c *gin.Context) {
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := queryUserID(c)
	if !ok {
		return
	}

	debts, err := h.debtService.ClientHistory(c.Request.Context(), clientID, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, debts)
}

// PendingDebts
// GET /api/v1/clients/:id/debts/pending
func (h *Handler) PendingDebts(c *gin.Context) {
	clientID, ok := pathID(c, "id")
	if !ok {
		return
	}

	debts, err := h.debtService.PendingApproval(c.Request.Context(), clientID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, debts)
}
