package handler

import (
	"creditledger/internal/service"
	"creditledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// RegisterDevice
// POST /api/v1/notifications/devices
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req service.RegisterDeviceRequest
	if !bindJSON(c, &req) {
		return
	}

	device, err := h.reminderService.RegisterDevice(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, device)
}

// RunReminders runs one overdue reminder sweep synchronously.
// POST /api/v1/notifications/reminders/run
func (h *Handler) RunReminders(c *gin.Context) {
	result, err := h.reminderService.RunSweep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}
