package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	consolidationUsecases "github.com/petgourmet/ledgersync/internal/application/consolidation/usecases"
	reconcileUsecases "github.com/petgourmet/ledgersync/internal/application/reconcile/usecases"
	subscriptionUsecases "github.com/petgourmet/ledgersync/internal/application/subscription/usecases"
	syncUsecases "github.com/petgourmet/ledgersync/internal/application/sync/usecases"
	"github.com/petgourmet/ledgersync/internal/infrastructure/scheduler"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
	"github.com/petgourmet/ledgersync/internal/shared/utils"
)

// SyncHealth exposes the scheduler's recent run history to the admin API.
type SyncHealth interface {
	History() []scheduler.RunRecord
	LastRun() (scheduler.RunRecord, bool)
}

type AdminHandler struct {
	reconcileOrderUC OrderReconciler
	reconcileSubUC   SubscriptionReconciler
	runSyncUC        SyncRunner
	consolidateUC    Consolidator
	consolidateAllUC ConsolidationSweeper
	pauseUC          SubscriptionPauser
	resumeUC         SubscriptionResumer
	cancelUC         SubscriptionCanceller
	syncHealth       SyncHealth
	logger           logger.Interface
}

func NewAdminHandler(
	reconcileOrderUC OrderReconciler,
	reconcileSubUC SubscriptionReconciler,
	runSyncUC SyncRunner,
	consolidateUC Consolidator,
	consolidateAllUC ConsolidationSweeper,
	pauseUC SubscriptionPauser,
	resumeUC SubscriptionResumer,
	cancelUC SubscriptionCanceller,
	syncHealth SyncHealth,
	logger logger.Interface,
) *AdminHandler {
	return &AdminHandler{
		reconcileOrderUC: reconcileOrderUC,
		reconcileSubUC:   reconcileSubUC,
		runSyncUC:        runSyncUC,
		consolidateUC:    consolidateUC,
		consolidateAllUC: consolidateAllUC,
		pauseUC:          pauseUC,
		resumeUC:         resumeUC,
		cancelUC:         cancelUC,
		syncHealth:       syncHealth,
		logger:           logger,
	}
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// SyncOrder forces a provider re-check of one order, terminal or not.
func (h *AdminHandler) SyncOrder(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	outcome, err := h.reconcileOrderUC.Execute(c.Request.Context(), reconcileUsecases.ReconcileOrderCommand{
		OrderID: id,
		Force:   true,
	})
	if err != nil {
		h.logger.Errorw("forced order sync failed", "error", err, "order_id", id)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "order reconciled", outcome)
}

// SyncSubscription forces a provider re-check of one subscription.
func (h *AdminHandler) SyncSubscription(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	outcome, err := h.reconcileSubUC.Execute(c.Request.Context(), reconcileUsecases.ReconcileSubscriptionCommand{
		SubscriptionID: id,
		Force:          true,
	})
	if err != nil {
		h.logger.Errorw("forced subscription sync failed", "error", err, "subscription_id", id)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "subscription reconciled", outcome)
}

type SyncByKeyRequest struct {
	CorrelationKey string `json:"correlation_key" binding:"required,correlation_key"`
}

// SyncSubscriptionByKey reconciles whichever subscription row is canonical
// for a checkout attempt that never got its provider id recorded.
func (h *AdminHandler) SyncSubscriptionByKey(c *gin.Context) {
	var req SyncByKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	outcome, err := h.reconcileSubUC.Execute(c.Request.Context(), reconcileUsecases.ReconcileSubscriptionCommand{
		CorrelationKey: req.CorrelationKey,
		Force:          true,
	})
	if err != nil {
		h.logger.Errorw("forced subscription sync failed", "error", err, "correlation_key", req.CorrelationKey)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "subscription reconciled", outcome)
}

type RunSyncRequest struct {
	MaxAgeMinutes int `json:"max_age_minutes" binding:"omitempty,min=1"`
	Limit         int `json:"limit" binding:"omitempty,min=1,max=1000"`
}

// RunSync triggers one sync batch inline and returns its report.
func (h *AdminHandler) RunSync(c *gin.Context) {
	var req RunSyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
	}

	report, err := h.runSyncUC.Execute(c.Request.Context(), syncUsecases.RunSyncCommand{
		MaxAge: time.Duration(req.MaxAgeMinutes) * time.Minute,
		Limit:  req.Limit,
	})
	if err != nil {
		h.logger.Errorw("manual sync run failed", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "sync completed", report)
}

type SyncHealthResponse struct {
	LastRun *scheduler.RunRecord  `json:"last_run,omitempty"`
	History []scheduler.RunRecord `json:"history"`
}

// GetSyncHealth reports the scheduler's recent runs.
func (h *AdminHandler) GetSyncHealth(c *gin.Context) {
	resp := SyncHealthResponse{History: h.syncHealth.History()}
	if last, ok := h.syncHealth.LastRun(); ok {
		resp.LastRun = &last
	}

	utils.SuccessResponse(c, http.StatusOK, "sync health", resp)
}

type ConsolidateRequest struct {
	CorrelationKey string `json:"correlation_key" binding:"required,correlation_key"`
}

// Consolidate collapses duplicate subscription rows for one correlation key.
func (h *AdminHandler) Consolidate(c *gin.Context) {
	var req ConsolidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	report, err := h.consolidateUC.Execute(c.Request.Context(), consolidationUsecases.ConsolidateCommand{
		CorrelationKey: req.CorrelationKey,
	})
	if err != nil {
		h.logger.Errorw("consolidation failed", "error", err, "correlation_key", req.CorrelationKey)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "consolidation completed", report)
}

type ConsolidateAllRequest struct {
	Limit int `json:"limit" binding:"omitempty,min=1,max=500"`
}

// ConsolidateAll sweeps every duplicated correlation key.
func (h *AdminHandler) ConsolidateAll(c *gin.Context) {
	var req ConsolidateAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
	}

	report, err := h.consolidateAllUC.Execute(c.Request.Context(), consolidationUsecases.ConsolidateAllCommand{
		Limit: req.Limit,
	})
	if err != nil {
		h.logger.Errorw("consolidation sweep failed", "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "consolidation sweep completed", report)
}

type subscriptionStateResponse struct {
	SubscriptionID uint       `json:"subscription_id"`
	Status         string     `json:"status"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
}

// PauseSubscription suspends an active subscription locally.
func (h *AdminHandler) PauseSubscription(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	sub, err := h.pauseUC.Execute(c.Request.Context(), subscriptionUsecases.PauseSubscriptionCommand{SubscriptionID: id})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "subscription paused", subscriptionStateResponse{
		SubscriptionID: sub.ID(),
		Status:         sub.Status().String(),
	})
}

// ResumeSubscription reactivates a paused subscription locally.
func (h *AdminHandler) ResumeSubscription(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	sub, err := h.resumeUC.Execute(c.Request.Context(), subscriptionUsecases.ResumeSubscriptionCommand{SubscriptionID: id})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "subscription resumed", subscriptionStateResponse{
		SubscriptionID: sub.ID(),
		Status:         sub.Status().String(),
	})
}

type CancelSubscriptionRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=255"`
}

// CancelSubscription moves a subscription into its terminal state.
func (h *AdminHandler) CancelSubscription(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req CancelSubscriptionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
			return
		}
	}

	sub, err := h.cancelUC.Execute(c.Request.Context(), subscriptionUsecases.CancelSubscriptionCommand{
		SubscriptionID: id,
		Reason:         req.Reason,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "subscription cancelled", subscriptionStateResponse{
		SubscriptionID: sub.ID(),
		Status:         sub.Status().String(),
		CancelledAt:    sub.CancelledAt(),
	})
}
