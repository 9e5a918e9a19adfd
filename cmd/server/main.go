package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/nimo-oa/internal/config"
	"github.com/bitfantasy/nimo-oa/internal/middleware"
	"github.com/bitfantasy/nimo-oa/internal/oa/entity"
	"github.com/bitfantasy/nimo-oa/internal/oa/handler"
	"github.com/bitfantasy/nimo-oa/internal/oa/repository"
	"github.com/bitfantasy/nimo-oa/internal/oa/service"
	"github.com/bitfantasy/nimo-oa/internal/shared/mailer"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-oa service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 建表
	if err := db.AutoMigrate(
		&entity.Role{},
		&entity.Department{},
		&entity.Employee{},
		&entity.Order{},
		&entity.OrderApproval{},
		&entity.ApprovalEntry{},
		&entity.Vendor{},
		&entity.Company{},
		&entity.Document{},
		&entity.SalesContract{},
		&entity.VendorRevenueSummary{},
		&entity.CompanyRevenueSummary{},
		&entity.OrderAuditLog{},
		&entity.DocumentAuditLog{},
		&entity.SalesContractAuditLog{},
		&entity.Notification{},
		&entity.NotificationDelivery{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}
	zapLogger.Info("Database migration completed")

	// Seed: 审批链内置角色
	roleSeeds := []struct {
		Name, DisplayName string
	}{
		{entity.RoleNameStaff, "员工"},
		{cfg.Approval.ManagerRole, "直属主管"},
		{cfg.Approval.MonetaryRole, "资金审批"},
		{cfg.Approval.CEORole, "CEO"},
	}
	for _, rs := range roleSeeds {
		db.Exec(`INSERT INTO oa_roles (id, name, display_name, approval_limit, created_at, updated_at)
			VALUES (gen_random_uuid(), ?, ?, 0, NOW(), NOW())
			ON CONFLICT (name) DO NOTHING`, rs.Name, rs.DisplayName)
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化邮件客户端
	var mailClient *mailer.Client
	if cfg.Mail.Endpoint != "" {
		mailClient = mailer.NewClient(cfg.Mail.Endpoint, cfg.Mail.APIKey, cfg.Mail.From)
		zapLogger.Info("Mail gateway client initialized")
	}

	// 初始化依赖
	repos := repository.NewRepositories(db)

	notifySvc := service.NewNotifyService(repos.Notification, repos.Employee, rdb, mailClient)
	ledgerSvc := service.NewLedgerService(repos.Revenue)
	approvalSvc := service.NewApprovalService(repos.Order, repos.Employee, repos.Audit, notifySvc, cfg.Approval, db)
	documentSvc := service.NewDocumentService(repos.Document, repos.Vendor, repos.Company, repos.Audit, ledgerSvc, db)
	salesConSvc := service.NewSalesContractService(repos.SalesContract, repos.Vendor, repos.Company, repos.Audit, ledgerSvc, db)
	counterpartySvc := service.NewCounterpartyService(repos.Vendor, repos.Company, repos.Revenue)

	handlers := handler.NewHandlers(approvalSvc, documentSvc, salesConSvc, counterpartySvc, repos.Audit, repos.Notification, repos.Employee)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
		// 唯一键冲突要能判别为 gorm.ErrDuplicatedKey（汇总行并发首建依赖这一点）
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// API v1
	v1 := r.Group("/api/v1/oa")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 订单审批
		orders := v1.Group("/orders")
		{
			orders.GET("", h.Order.List)
			orders.GET("/pending", h.Order.ListPending)
			orders.GET("/:id", h.Order.Get)
			orders.POST("", h.Order.Create)
			orders.POST("/:id/decide", h.Order.Decide)
			orders.PUT("/:id/delivery", h.Order.UpdateDelivery)
			orders.GET("/:id/audit", middleware.RequireRole("oa_admin"), h.Order.Audit)
		}

		// 合同文档
		documents := v1.Group("/documents")
		{
			documents.GET("", h.Document.List)
			documents.GET("/:id", h.Document.Get)
			documents.POST("", h.Document.Create)
			documents.PUT("/:id", h.Document.Update)
			documents.DELETE("/:id", h.Document.Delete)
		}

		// 销售合同
		salesContracts := v1.Group("/sales-contracts")
		{
			salesContracts.GET("", h.SalesCon.List)
			salesContracts.GET("/:id", h.SalesCon.Get)
			salesContracts.POST("", h.SalesCon.Create)
			salesContracts.PUT("/:id", h.SalesCon.Update)
			salesContracts.DELETE("/:id", h.SalesCon.Delete)
		}

		// 供应商
		vendors := v1.Group("/vendors")
		{
			vendors.GET("", h.Vendor.List)
			vendors.GET("/:id", h.Vendor.Get)
			vendors.GET("/:id/revenue", h.Vendor.Revenue)
			vendors.POST("", h.Vendor.Create)
			vendors.PUT("/:id", h.Vendor.Update)
		}

		// 合作公司
		companies := v1.Group("/companies")
		{
			companies.GET("", h.Company.List)
			companies.GET("/:id", h.Company.Get)
			companies.GET("/:id/revenue", h.Company.Revenue)
			companies.POST("", h.Company.Create)
			companies.PUT("/:id", h.Company.Update)
		}

		// 站内信
		v1.GET("/notifications", h.Notification.ListMine)
	}
}
