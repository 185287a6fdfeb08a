package handler

import (
	"errors"
	"log"
	"strconv"

	"creditledger/internal/config"
	"creditledger/internal/service"
	"creditledger/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the external collaborators behind the services.
type Dependencies struct {
	Mirror   service.LedgerMirror
	Locker   service.DebtLocker
	Notifier service.Notifier
}

type Handler struct {
	debtService     *service.DebtService
	paymentService  *service.PaymentService
	approvalService *service.ApprovalService
	scoreService    *service.ScoreService
	reminderService *service.ReminderService
	catalogService  *service.CatalogService
}

func NewHandler(db *gorm.DB, cfg *config.Config, deps Dependencies) *Handler {
	return &Handler{
		debtService:     service.NewDebtService(db, cfg, deps.Mirror),
		paymentService:  service.NewPaymentService(db, cfg, deps.Mirror, deps.Locker),
		approvalService: service.NewApprovalService(db, cfg),
		scoreService:    service.NewScoreService(db),
		reminderService: service.NewReminderService(db, deps.Notifier),
		catalogService:  service.NewCatalogService(db),
	}
}

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, err.Error())
	default:
		log.Printf("[Handler] unexpected error: %s %s request_id=%s, err=%v",
			c.Request.Method, c.FullPath(), c.GetString(requestIDKey), err)
		response.ServerError(c, "internal server error")
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// queryUserID reads the optional owner filter. Zero means no filter.
func queryUserID(c *gin.Context) (int64, bool) {
	raw := c.Query("userId")
	if raw == "" {
		raw = c.Query("user_id")
	}
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		response.ParamError(c, "userId must be a positive integer")
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return false
	}
	return true
}
