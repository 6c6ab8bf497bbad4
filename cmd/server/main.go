package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	catalogapp "github.com/maraline/backend/internal/application/catalog"
	financeapp "github.com/maraline/backend/internal/application/finance"
	identityapp "github.com/maraline/backend/internal/application/identity"
	referralapp "github.com/maraline/backend/internal/application/referral"
	tradeapp "github.com/maraline/backend/internal/application/trade"
	"github.com/maraline/backend/internal/domain/identity"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/infrastructure/auth"
	"github.com/maraline/backend/internal/infrastructure/cache"
	"github.com/maraline/backend/internal/infrastructure/config"
	"github.com/maraline/backend/internal/infrastructure/logger"
	"github.com/maraline/backend/internal/infrastructure/payment"
	"github.com/maraline/backend/internal/infrastructure/persistence"
	"github.com/maraline/backend/internal/infrastructure/scheduler"
	"github.com/maraline/backend/internal/interfaces/http/handler"
	"github.com/maraline/backend/internal/interfaces/http/middleware"
	"github.com/maraline/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Maraline backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	withdrawalRepo := persistence.NewGormWithdrawalRepository(db.DB)

	// Idempotency store for payment callbacks, Redis when reachable
	var idempotencyStore shared.IdempotencyStore
	if redisStore, err := cache.NewRedisIdempotencyStore(cfg.Redis); err != nil {
		log.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
	} else {
		idempotencyStore = redisStore
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	gateway := payment.NewHostedCheckoutGateway(cfg.Payment)

	referralCfg, err := referralConfig(cfg.Referral)
	if err != nil {
		log.Fatal("Invalid referral configuration", zap.Error(err))
	}

	// Application services
	bonusEngine := referralapp.NewBonusEngine(referralapp.BonusEngineConfig{
		UserRepo:       userRepo,
		LedgerRepo:     ledgerRepo,
		OrderRepo:      orderRepo,
		WithdrawalRepo: withdrawalRepo,
		Config:         referralCfg,
		Logger:         log,
	})
	passiveIncomeService := referralapp.NewPassiveIncomeService(referralapp.PassiveIncomeServiceConfig{
		Engine:     bonusEngine,
		UserRepo:   userRepo,
		LedgerRepo: ledgerRepo,
		OrderRepo:  orderRepo,
		Logger:     log,
	})
	referralQueryService := referralapp.NewQueryService(userRepo, ledgerRepo, referralCfg)

	authService := identityapp.NewAuthService(userRepo, jwtService, log)
	userService := identityapp.NewUserService(userRepo, log)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, log)
	categoryService := catalogapp.NewCategoryService(categoryRepo, log)
	orderService := tradeapp.NewOrderService(tradeapp.OrderServiceConfig{
		Orders:   orderRepo,
		Products: productRepo,
		Users:    userRepo,
		Gateway:  gateway,
		Referral: bonusEngine,
		Tx:       persistence.NewGormTransactionManager(db.DB),
		Logger:   log,
	})
	withdrawalService := financeapp.NewWithdrawalService(withdrawalRepo, userRepo, log)
	callbackService := financeapp.NewPaymentCallbackService(financeapp.PaymentCallbackServiceConfig{
		Gateway:     gateway,
		Orders:      orderRepo,
		Reverter:    orderService,
		Idempotency: idempotencyStore,
		Logger:      log,
	})

	// Monthly passive income trigger
	monthlyScheduler := scheduler.NewMonthlyScheduler(cfg.Scheduler, passiveIncomeService, log)
	if err := monthlyScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	productHandler := handler.NewProductHandler(productService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	orderHandler := handler.NewOrderHandler(orderService)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalService)
	referralHandler := handler.NewReferralHandler(referralQueryService, bonusEngine, passiveIncomeService)
	callbackHandler := handler.NewPaymentCallbackHandler(callbackService, log)
	systemHandler := handler.NewSystemHandler(db.DB)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Liveness endpoint outside API versioning
	engine.GET("/health", systemHandler.Health)

	// Payment gateway callback, called server-to-server without auth
	engine.POST("/api/v1/payment/callback", callbackHandler.Callback)

	registerRoutes(engine, routeHandlers{
		auth:       authHandler,
		user:       userHandler,
		product:    productHandler,
		category:   categoryHandler,
		order:      orderHandler,
		withdrawal: withdrawalHandler,
		referral:   referralHandler,
		system:     systemHandler,
	}, jwtService)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := monthlyScheduler.Stop(ctx); err != nil {
		log.Error("Scheduler did not stop cleanly", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

type routeHandlers struct {
	auth       *handler.AuthHandler
	user       *handler.UserHandler
	product    *handler.ProductHandler
	category   *handler.CategoryHandler
	order      *handler.OrderHandler
	withdrawal *handler.WithdrawalHandler
	referral   *handler.ReferralHandler
	system     *handler.SystemHandler
}

// registerRoutes mounts all versioned API routes. Groups are split by access
// level: public, any authenticated user, seller, admin.
func registerRoutes(engine *gin.Engine, h routeHandlers, jwtService *auth.JWTService) {
	requireAuth := middleware.JWTAuth(jwtService)
	requireSeller := middleware.RequireRoles(string(identity.RoleSeller), string(identity.RoleAdmin))
	requireAdmin := middleware.RequireRoles(string(identity.RoleAdmin))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Public
	authPublic := router.NewDomainGroup("auth-public", "/auth")
	authPublic.POST("/register", h.auth.Register)
	authPublic.POST("/login", h.auth.Login)
	authPublic.POST("/refresh", h.auth.Refresh)

	storefront := router.NewDomainGroup("storefront", "")
	storefront.GET("/products", h.product.List)
	storefront.GET("/products/:id", h.product.Get)
	storefront.GET("/categories", h.category.List)

	system := router.NewDomainGroup("system", "/system")
	system.GET("/info", h.system.Info)
	system.GET("/health", h.system.Health)

	// Authenticated
	account := router.NewDomainGroup("account", "/auth").Use(requireAuth)
	account.GET("/me", h.auth.Me)
	account.POST("/change-password", h.auth.ChangePassword)

	orders := router.NewDomainGroup("orders", "/orders").Use(requireAuth)
	orders.POST("", h.order.Checkout)
	orders.GET("/my", h.order.MyOrders)
	orders.GET("/:id", h.order.Get)
	orders.POST("/:id/return", h.order.RequestReturn)

	withdrawals := router.NewDomainGroup("withdrawals", "/withdrawals").Use(requireAuth)
	withdrawals.POST("", h.withdrawal.Request)
	withdrawals.GET("", h.withdrawal.MyWithdrawals)

	referral := router.NewDomainGroup("referral", "/referral").Use(requireAuth)
	referral.GET("/ledger", h.referral.MyLedger)
	referral.GET("/summary", h.referral.MySummary)
	referral.GET("/tree", h.user.MyReferralTree)

	// Seller
	seller := router.NewDomainGroup("seller", "/seller").Use(requireAuth, requireSeller)
	seller.POST("/products", h.product.Create)
	seller.GET("/products", h.product.MyProducts)
	seller.PUT("/products/:id", h.product.Update)
	seller.POST("/products/:id/publish", h.product.Publish)
	seller.DELETE("/products/:id", h.product.Delete)

	// Admin
	admin := router.NewDomainGroup("admin", "/admin").Use(requireAuth, requireAdmin)
	admin.GET("/users", h.user.List)
	admin.GET("/users/:id", h.user.Get)
	admin.PUT("/users/:id/referral-limit", h.user.SetReferralLimit)
	admin.DELETE("/users/:id/referral-limit", h.user.ClearReferralLimit)
	admin.POST("/users/:id/approve-seller", h.user.ApproveSeller)
	admin.GET("/users/:id/referral-tree", h.user.ReferralTree)
	admin.GET("/users/:id/ledger", h.referral.UserLedger)
	admin.GET("/users/:id/earnings", h.referral.UserSummary)

	admin.POST("/categories", h.category.Create)
	admin.PUT("/categories/:id/active", h.category.SetActive)
	admin.POST("/products/:id/suspend", h.product.Suspend)
	admin.POST("/products/:id/unsuspend", h.product.Unsuspend)

	admin.GET("/orders", h.order.List)
	admin.POST("/orders/:id/approve", h.order.Approve)
	admin.POST("/orders/:id/ship", h.order.Ship)
	admin.POST("/orders/:id/complete", h.order.Complete)
	admin.POST("/orders/:id/reject", h.order.Reject)
	admin.POST("/orders/:id/return/approve", h.order.ApproveReturn)
	admin.POST("/orders/:id/return/deny", h.order.DenyReturn)
	admin.POST("/orders/:id/return/received", h.order.MarkReturned)

	admin.GET("/withdrawals", h.withdrawal.List)
	admin.POST("/withdrawals/:id/approve", h.withdrawal.Approve)
	admin.POST("/withdrawals/:id/reject", h.withdrawal.Reject)

	admin.POST("/referral/recalculate", h.referral.Recalculate)
	admin.POST("/referral/passive/refill", h.referral.RunPassiveRefill)
	admin.POST("/referral/passive/distribute", h.referral.RunPassiveDistribution)

	r.Register(authPublic, storefront, system, account, orders, withdrawals, referral, seller, admin)
	r.Setup()
}

// referralConfig parses the plan parameters from their config representation
func referralConfig(cfg config.ReferralConfig) (referralapp.Config, error) {
	bonus, err := decimal.NewFromString(cfg.BonusAmount)
	if err != nil {
		return referralapp.Config{}, fmt.Errorf("referral.bonus_amount: %w", err)
	}
	earningCap, err := decimal.NewFromString(cfg.EarningCap)
	if err != nil {
		return referralapp.Config{}, fmt.Errorf("referral.earning_cap: %w", err)
	}
	threshold, err := decimal.NewFromString(cfg.ActivitySpendThreshold)
	if err != nil {
		return referralapp.Config{}, fmt.Errorf("referral.activity_spend_threshold: %w", err)
	}

	return referralapp.Config{
		BonusAmount:            bonus,
		EarningCap:             earningCap,
		ActivitySpendThreshold: threshold,
		ReferralLimit:          cfg.ReferralLimit,
		AdminReferralLimit:     cfg.AdminReferralLimit,
		AdminHasEarningCap:     cfg.AdminHasEarningCap,
		ChainDepth:             cfg.ChainDepth,
	}, nil
}
