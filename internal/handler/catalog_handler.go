package handler

import (
	"creditledger/internal/service"
	"creditledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// CreateCatalogItem
// POST /api/v1/catalog/items
func (h *Handler) CreateCatalogItem(c *gin.Context) {
	var req service.CreateCatalogItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.catalogService.CreateItem(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, item)
}

// ListCatalogItems lists the active items of one user.
// GET /api/v1/catalog/items?userId=
func (h *Handler) ListCatalogItems(c *gin.Context) {
	userID, ok := queryUserID(c)
	if !ok {
		return
	}
	if userID == 0 {
		response.ParamError(c, "userId is required")
		return
	}

	items, err := h.catalogService.ListItems(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, items)
}

// DeleteCatalogItem deactivates the item; debts that used it keep their
// line-item snapshot.
// DELETE /api/v1/catalog/items/:id
func (h *Handler) DeleteCatalogItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteItem(c.Request.Context(), itemID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"item_id": itemID,
		"active":  false,
	})
}
