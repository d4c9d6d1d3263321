package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	assetapp "github.com/wyfcoding/optionamm/internal/asset/application"
	assetdomain "github.com/wyfcoding/optionamm/internal/asset/domain"
	assetmysql "github.com/wyfcoding/optionamm/internal/asset/infrastructure/persistence/mysql"
	assethttp "github.com/wyfcoding/optionamm/internal/asset/interfaces/http"
	liqapp "github.com/wyfcoding/optionamm/internal/liquidity/application"
	liqdomain "github.com/wyfcoding/optionamm/internal/liquidity/domain"
	liqmsg "github.com/wyfcoding/optionamm/internal/liquidity/infrastructure/messaging"
	liqmysql "github.com/wyfcoding/optionamm/internal/liquidity/infrastructure/persistence/mysql"
	liqhttp "github.com/wyfcoding/optionamm/internal/liquidity/interfaces/http"
	obapp "github.com/wyfcoding/optionamm/internal/optionbook/application"
	obdomain "github.com/wyfcoding/optionamm/internal/optionbook/domain"
	obmsg "github.com/wyfcoding/optionamm/internal/optionbook/infrastructure/messaging"
	obmysql "github.com/wyfcoding/optionamm/internal/optionbook/infrastructure/persistence/mysql"
	obhttp "github.com/wyfcoding/optionamm/internal/optionbook/interfaces/http"
	oracledomain "github.com/wyfcoding/optionamm/internal/oracle/domain"
	oracleinfra "github.com/wyfcoding/optionamm/internal/oracle/infrastructure"
	oraclehttp "github.com/wyfcoding/optionamm/internal/oracle/interfaces/http"
	setapp "github.com/wyfcoding/optionamm/internal/settlement/application"
	setdomain "github.com/wyfcoding/optionamm/internal/settlement/domain"
	setmsg "github.com/wyfcoding/optionamm/internal/settlement/infrastructure/messaging"
	setmysql "github.com/wyfcoding/optionamm/internal/settlement/infrastructure/persistence/mysql"
	sethttp "github.com/wyfcoding/optionamm/internal/settlement/interfaces/http"
	"github.com/wyfcoding/optionamm/pkg/cache"
	"github.com/wyfcoding/optionamm/pkg/config"
	"github.com/wyfcoding/optionamm/pkg/db"
	"github.com/wyfcoding/optionamm/pkg/logger"
	"github.com/wyfcoding/optionamm/pkg/metrics"
	"github.com/wyfcoding/optionamm/pkg/middleware"
	"github.com/wyfcoding/optionamm/pkg/mq"
	"github.com/wyfcoding/optionamm/pkg/ratelimit"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get()
	ctx := context.Background()

	logger.Info(ctx, "starting service",
		"service", cfg.ServiceName, "version", cfg.Version, "environment", cfg.Environment)

	// 数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init database", "error", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&assetdomain.Account{},
		&assetdomain.Transfer{},
		&obdomain.Option{},
		&obdomain.Holding{},
		&liqdomain.Pool{},
		&liqdomain.Contribution{},
		&setdomain.SettlementRecord{},
	); err != nil {
		logger.Fatal(ctx, "failed to migrate database", "error", err)
	}

	// Redis：预言机与限流按需使用
	var redisCache *cache.RedisCache
	if cfg.Oracle.Source == "redis" || cfg.RateLimit.Enabled {
		redisCache, err = cache.New(cache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			MaxPoolSize:  cfg.Redis.MaxPoolSize,
			ConnTimeout:  cfg.Redis.ConnTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to init redis", "error", err)
		}
		defer redisCache.Close()
	}

	// Kafka：未配置 broker 时跳过事件发布
	var producer *mq.KafkaProducer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			GroupID:      cfg.Kafka.GroupID,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			logger.Fatal(ctx, "failed to init kafka producer", "error", err)
		}
		defer producer.Close()
	} else {
		logger.Warn(ctx, "no kafka brokers configured, event publishing disabled")
	}

	// 指标
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.ServiceName)
		if err := m.Register(); err != nil {
			logger.Fatal(ctx, "failed to register metrics", "error", err)
		}
		metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 预言机
	var (
		priceOracle oracledomain.PriceOracle
		priceSetter oraclehttp.PriceSetter
	)
	switch cfg.Oracle.Source {
	case "redis":
		feed := oracleinfra.NewRedisFeed(redisCache, cfg.Oracle.PriceKey)
		priceOracle, priceSetter = feed, feed
	case "static":
		price := decimal.Zero
		if cfg.Oracle.StaticPrice != "" {
			price, err = decimal.NewFromString(cfg.Oracle.StaticPrice)
			if err != nil {
				logger.Fatal(ctx, "invalid static oracle price", "value", cfg.Oracle.StaticPrice)
			}
		}
		static := oracleinfra.NewStaticOracle(price)
		priceOracle, priceSetter = static, static
	}

	// 资产上下文
	accountRepo := assetmysql.NewAccountRepo(database)
	transferRepo := assetmysql.NewTransferRepo(database)
	assetService := assetapp.NewService(accountRepo, transferRepo, cfg.Pool.AccountID, log)

	// 期权簿上下文
	optionRepo := obmysql.NewOptionRepo(database)
	holdingRepo := obmysql.NewHoldingRepo(database)
	var obPublisher obdomain.EventPublisher
	if producer != nil {
		obPublisher = obmsg.NewKafkaPublisher(producer, cfg.Kafka.EventTopic)
	}
	optionService := obapp.NewService(optionRepo, holdingRepo, assetService, obPublisher, m, log)

	// 流动性上下文
	poolRepo := liqmysql.NewPoolRepo(database)
	contributionRepo := liqmysql.NewContributionRepo(database)
	var liqPublisher liqdomain.EventPublisher
	if producer != nil {
		liqPublisher = liqmsg.NewKafkaPublisher(producer, cfg.Kafka.EventTopic)
	}
	liquidityService := liqapp.NewService(poolRepo, contributionRepo, assetService, liqPublisher, m, log)

	// 结算上下文
	settlementRepo := setmysql.NewSettlementRepo(database)
	var setPublisher setdomain.EventPublisher
	if producer != nil {
		setPublisher = setmsg.NewKafkaPublisher(producer, cfg.Kafka.EventTopic)
	}
	settlementEngine := setapp.NewEngine(
		settlementRepo,
		optionRepo,
		holdingRepo,
		liquidityService,
		assetService,
		priceOracle,
		setPublisher,
		m,
		log,
	)

	// HTTP
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Logging(), middleware.Recovery())
	if m != nil {
		router.Use(middleware.Metrics(m))
	}
	if cfg.RateLimit.Enabled && redisCache != nil {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		router.Use(middleware.RateLimit(limiter, cfg.RateLimit))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName, "version": cfg.Version})
	})

	api := router.Group("/api/v1")
	assethttp.NewHandler(assetService, log).RegisterRoutes(api)
	obhttp.NewHandler(optionService, log).RegisterRoutes(api)
	liqhttp.NewHandler(liquidityService, log).RegisterRoutes(api)
	sethttp.NewHandler(settlementEngine, log).RegisterRoutes(api)
	oraclehttp.NewHandler(priceOracle, priceSetter, log).RegisterRoutes(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx, "http server failed", "error", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "forced shutdown", "error", err)
	}
	logger.Info(ctx, "server stopped")
}
