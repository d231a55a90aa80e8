package routes

import (
	"vaultbank/internal/adapters/http/handlers"
	"vaultbank/internal/adapters/http/middleware"
	"vaultbank/internal/adapters/persistence/repositories"
	"vaultbank/internal/config"
	"vaultbank/internal/core/services"
	"vaultbank/internal/pkg/keylock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize store
	store := repositories.NewLedgerRepository(db)

	// Shared per-account lock table; one instance per process
	locks := keylock.New()

	// Initialize services
	notifyService := services.NewNotificationService(services.NewEmailNotifier(cfg.SMTP))
	accountService := services.NewAccountService(store, notifyService, locks)
	transferService := services.NewTransferService(store, notifyService, locks)
	loanService := services.NewLoanService(store, notifyService, locks)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	accountHandler := handlers.NewAccountHandler(accountService)
	transferHandler := handlers.NewTransferHandler(transferService)
	loanHandler := handlers.NewLoanHandler(loanService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group (everything below requires authentication)
	apiV1 := app.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(cfg))

	accountRoutes := apiV1.Group("/accounts")
	setupAccountRoutes(accountRoutes, accountHandler, loanHandler)

	transferRoutes := apiV1.Group("/transfers")
	setupTransferRoutes(transferRoutes, transferHandler)

	loanRoutes := apiV1.Group("/loans")
	setupLoanRoutes(loanRoutes, loanHandler)
}

// setupAccountRoutes configures account and balance-mutation routes
func setupAccountRoutes(router fiber.Router, handler *handlers.AccountHandler, loanHandler *handlers.LoanHandler) {
	router.Post("/", handler.Open)
	router.Get("/", handler.List)
	router.Get("/:id", handler.GetByID)
	router.Get("/:id/transactions", handler.Statement)
	router.Get("/:id/loans", loanHandler.ListByAccount)
	router.Put("/:id/txn-password", handler.ChangeTxnPassword)

	// Money movement gets the stricter rate limit
	router.Post("/:id/deposit", middleware.TransferRateLimiter(), handler.Deposit)
	router.Post("/:id/withdraw", middleware.TransferRateLimiter(), handler.Withdraw)
}

// setupTransferRoutes configures the two-phase transfer routes plus the
// staff review endpoints
func setupTransferRoutes(router fiber.Router, handler *handlers.TransferHandler) {
	router.Post("/", middleware.TransferRateLimiter(), handler.Initiate)
	router.Post("/confirm", middleware.TransferRateLimiter(), handler.Confirm)

	// Review routes (Staff/Admin only)
	reviewRoutes := router.Group("/pending")
	reviewRoutes.Use(middleware.StaffOnly())
	reviewRoutes.Post("/:id/approve", handler.Approve)
	reviewRoutes.Post("/:id/reject", handler.Reject)
}

// setupLoanRoutes configures loan lifecycle routes
func setupLoanRoutes(router fiber.Router, handler *handlers.LoanHandler) {
	router.Post("/", handler.Apply)
	router.Post("/quote", handler.Quote)
	router.Get("/:id", handler.GetByID)
	router.Post("/:id/repay", middleware.TransferRateLimiter(), handler.Repay)

	// Review routes (Staff/Admin only)
	router.Post("/:id/approve", middleware.StaffOnly(), handler.Approve)
	router.Post("/:id/reject", middleware.StaffOnly(), handler.Reject)
}
