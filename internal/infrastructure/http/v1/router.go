// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"prodplan/internal/domain/bom"
	"prodplan/internal/domain/capacity"
	"prodplan/internal/domain/ledger"
	"prodplan/internal/domain/mrp"
	"prodplan/internal/infrastructure/http/v1/handlers"
	"prodplan/internal/infrastructure/http/v1/middleware"
	"prodplan/internal/infrastructure/storage/postgres"
	"prodplan/internal/infrastructure/storage/postgres/catalog_repo"
	"prodplan/internal/infrastructure/storage/postgres/ledger_repo"
	"prodplan/internal/infrastructure/storage/postgres/planning_repo"
	"prodplan/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Logger    *logger.Logger
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	// Repositories share the transaction manager; the active transaction
	// travels in the request context.
	ledgerRepo := ledger_repo.NewLedgerRepo(cfg.TxManager)
	itemRepo := catalog_repo.NewItemRepo(cfg.TxManager)
	bomRepo := planning_repo.NewBOMRepo(cfg.TxManager)
	reservationRepo := planning_repo.NewReservationRepo(cfg.TxManager)
	mrpRepo := planning_repo.NewMRPRepo(cfg.TxManager)
	capacityRepo := planning_repo.NewCapacityRepo(cfg.TxManager)

	ledgerService := ledger.NewService(ledgerRepo)
	resolvers := bom.DefaultResolverChain(bomRepo, ledgerRepo, itemRepo)
	bomService := bom.NewService(bomRepo, itemRepo, reservationRepo, resolvers, cfg.TxManager)
	mrpService := mrp.NewService(mrpRepo, itemRepo, bomRepo, reservationRepo, cfg.TxManager)
	capacityService := capacity.NewService(capacityRepo)

	baseHandler := handlers.NewBaseHandler()
	ledgerHandler := handlers.NewLedgerHandler(baseHandler, ledgerService)
	bomHandler := handlers.NewBOMHandler(baseHandler, bomService)
	mrpHandler := handlers.NewMRPHandler(baseHandler, mrpService)
	capacityHandler := handlers.NewCapacityHandler(baseHandler, capacityService)

	api := router.Group("/api/v1")
	{
		api.GET("/items/:itemId/ledger", ledgerHandler.GetItemLedger)

		boms := api.Group("/boms")
		{
			boms.POST("", bomHandler.Create)
			boms.PUT("/:bomId", bomHandler.Update)
			boms.GET("/:bomId/cost", bomHandler.GetUnitCost)
			boms.GET("/:bomId/requirements", bomHandler.GetRequirements)
		}

		mrpGroup := api.Group("/mrp")
		{
			mrpGroup.GET("/requirements", mrpHandler.Calculate)
			mrpGroup.POST("/suggestions", mrpHandler.GenerateSuggestions)
			mrpGroup.POST("/suggestions/convert", mrpHandler.ConvertToOrders)
		}

		capacityGroup := api.Group("/capacity")
		{
			capacityGroup.GET("/load", capacityHandler.GetLoad)
			capacityGroup.GET("/summary", capacityHandler.GetSummary)
			capacityGroup.GET("/bottlenecks", capacityHandler.GetBottlenecks)
			capacityGroup.GET("/schedule", capacityHandler.GetSchedule)
		}
	}

	return router
}
