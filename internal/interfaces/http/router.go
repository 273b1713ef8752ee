// Package http wires the gin engine: the provider webhook endpoint and the
// admin facade over the reconciliation use cases.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	consolidationUsecases "github.com/petgourmet/ledgersync/internal/application/consolidation/usecases"
	reconcileUsecases "github.com/petgourmet/ledgersync/internal/application/reconcile/usecases"
	subscriptionUsecases "github.com/petgourmet/ledgersync/internal/application/subscription/usecases"
	syncUsecases "github.com/petgourmet/ledgersync/internal/application/sync/usecases"
	webhookUsecases "github.com/petgourmet/ledgersync/internal/application/webhook/usecases"
	"github.com/petgourmet/ledgersync/internal/infrastructure/cache"
	"github.com/petgourmet/ledgersync/internal/infrastructure/config"
	"github.com/petgourmet/ledgersync/internal/infrastructure/provider"
	"github.com/petgourmet/ledgersync/internal/infrastructure/pubsub"
	"github.com/petgourmet/ledgersync/internal/infrastructure/repository"
	"github.com/petgourmet/ledgersync/internal/interfaces/http/handlers"
	"github.com/petgourmet/ledgersync/internal/interfaces/http/middleware"
	sharedDB "github.com/petgourmet/ledgersync/internal/shared/db"
	"github.com/petgourmet/ledgersync/internal/shared/logger"
	"github.com/petgourmet/ledgersync/internal/shared/utils"
)

// Router holds the gin engine and the handlers it routes to.
type Router struct {
	engine         *gin.Engine
	webhookHandler *handlers.WebhookHandler
	adminHandler   *handlers.AdminHandler
	db             *gorm.DB
}

// NewRouter wires repositories, use cases and handlers over the shared
// database and redis connections.
func NewRouter(
	db *gorm.DB,
	redisClient *redis.Client,
	syncHealth handlers.SyncHealth,
	cfg *config.Config,
	log logger.Interface,
) *Router {
	engine := gin.New()

	orderRepo := repository.NewOrderRepository(db, log)
	subRepo := repository.NewSubscriptionRepository(db, log)
	webhookRepo := repository.NewWebhookEventRepository(db, log)
	billingRepo := repository.NewBillingEntryRepository(db, log)

	client := provider.NewHTTPClient(cfg.Provider, log)
	locker := cache.NewRedisAdvisoryLock(redisClient, log)
	transitionBus := pubsub.NewRedisTransitionBus(redisClient, log)

	reconcileOrderUC := reconcileUsecases.NewReconcileOrderUseCase(orderRepo, billingRepo, client, log)
	reconcileOrderUC.SetNotifier(transitionBus)
	reconcileSubUC := reconcileUsecases.NewReconcileSubscriptionUseCase(subRepo, billingRepo, client, log)
	reconcileSubUC.SetNotifier(transitionBus)

	ingestUC := webhookUsecases.NewIngestEventUseCase(webhookRepo, orderRepo, subRepo, client, reconcileOrderUC, reconcileSubUC, log)
	runSyncUC := syncUsecases.NewRunSyncUseCase(orderRepo, subRepo, billingRepo, reconcileOrderUC, reconcileSubUC, log)
	consolidateUC := consolidationUsecases.NewConsolidateUseCase(subRepo, locker, log)
	consolidateUC.SetTransactionManager(sharedDB.NewTransactionManager(db))
	consolidateAllUC := consolidationUsecases.NewConsolidateAllUseCase(subRepo, consolidateUC, log)
	pauseUC := subscriptionUsecases.NewPauseSubscriptionUseCase(subRepo, log)
	resumeUC := subscriptionUsecases.NewResumeSubscriptionUseCase(subRepo, log)
	cancelUC := subscriptionUsecases.NewCancelSubscriptionUseCase(subRepo, log)

	webhookHandler := handlers.NewWebhookHandler(ingestUC, cfg.Webhook, cfg.Server.IsRelease(), log)
	adminHandler := handlers.NewAdminHandler(
		reconcileOrderUC, reconcileSubUC, runSyncUC,
		consolidateUC, consolidateAllUC,
		pauseUC, resumeUC, cancelUC,
		syncHealth, log,
	)

	return &Router{
		engine:         engine,
		webhookHandler: webhookHandler,
		adminHandler:   adminHandler,
		db:             db,
	}
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes(log logger.Interface) {
	handlers.RegisterValidations()

	r.engine.Use(middleware.Logger(log))
	r.engine.Use(middleware.Recovery())

	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	{
		v1.POST("/webhooks/provider", r.webhookHandler.Receive)

		admin := v1.Group("/admin")
		{
			admin.POST("/orders/:id/sync", r.adminHandler.SyncOrder)

			admin.POST("/subscriptions/sync-by-key", r.adminHandler.SyncSubscriptionByKey)
			admin.POST("/subscriptions/:id/sync", r.adminHandler.SyncSubscription)
			admin.POST("/subscriptions/:id/pause", r.adminHandler.PauseSubscription)
			admin.POST("/subscriptions/:id/resume", r.adminHandler.ResumeSubscription)
			admin.POST("/subscriptions/:id/cancel", r.adminHandler.CancelSubscription)

			admin.POST("/sync/run", r.adminHandler.RunSync)
			admin.GET("/sync/health", r.adminHandler.GetSyncHealth)

			admin.POST("/consolidations", r.adminHandler.Consolidate)
			admin.POST("/consolidations/sweep", r.adminHandler.ConsolidateAll)
		}
	}
}

func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "database unreachable")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "ok", gin.H{"status": "healthy"})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
