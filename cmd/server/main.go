package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidhub/config"
	"vidhub/internal/handler"
	"vidhub/internal/model"
	"vidhub/internal/repository"
	"vidhub/internal/service"
	dbPkg "vidhub/pkg/db"
	"vidhub/pkg/jwt"
	"vidhub/pkg/logger"
	"vidhub/pkg/media"
	redisPkg "vidhub/pkg/redis"
	"vidhub/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== vidhub 启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("database_host", cfg.Database.Host),
		zap.Int("database_port", cfg.Database.Port),
		zap.String("database_name", cfg.Database.Database),
		zap.Duration("access_token_expire", cfg.JWT.AccessExpire),
		zap.Duration("refresh_token_expire", cfg.JWT.RefreshExpire),
		zap.String("media_provider", cfg.Media.Provider),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.String("log_level", cfg.Log.Level),
	)

	ctx := context.Background()

	// 3. 初始化存储
	userRepo, subRepo := initRepositories(cfg.Database, log)
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()

	// 3.1 访问令牌黑名单：Redis不可用时退回内存实现
	var denylist jwt.Denylist = jwt.NewMemoryDenylist()
	if cfg.Redis.Enabled {
		client, err := redisPkg.InitRedis(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis连接失败，使用内存黑名单", zap.Error(err))
		} else {
			defer redisPkg.Close()
			denylist = redisPkg.NewTokenDenylist(client)
			log.Info("Redis连接成功")
		}
	}

	// 3.2 媒体存储
	host, err := media.NewHost(ctx, cfg.Media)
	if err != nil {
		log.Fatal("媒体存储初始化失败", zap.Error(err))
	}
	uploads, err := handler.NewUploadStore(cfg.Media.UploadDir, cfg.Media.MaxUploadSize)
	if err != nil {
		log.Fatal("上传目录初始化失败", zap.Error(err))
	}

	// 3.3 初始化业务服务
	jwtSvc := jwt.NewJWTService(cfg.JWT)
	tokenSvc := service.NewTokenService(userRepo, jwtSvc)
	userSvc := service.NewUserService(userRepo, tokenSvc, jwtSvc, media.NewAttacher(host, cfg.Media.Folder), denylist)
	channelSvc := service.NewChannelService(userRepo, subRepo)
	userHandler := handler.NewUserHandler(userSvc, uploads, cfg.Cookie)
	channelHandler := handler.NewChannelHandler(channelSvc)

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := gin.New()
	router.MaxMultipartMemory = cfg.Media.MaxUploadSize

	// 使用中间件
	router.Use(logger.RequestLogger())         // 请求日志中间件
	router.Use(logger.ErrorLoggerMiddleware()) // panic恢复

	// 6. 设置基础路由
	setupBasicRoutes(router, cfg)

	// 6.1 绑定用户路由
	v1 := router.Group("/api/v1")
	handler.RegisterUserRoutes(v1, userHandler, channelHandler, jwtSvc.AuthMiddleware(denylist))

	// 7. 创建HTTP服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 8. 启动HTTP服务器
	go func() {
		log.Info("HTTP服务器启动", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP服务器启动失败", zap.Error(err))
		}
	}()

	// 9. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务器...")

	// 设置关闭超时
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 关闭HTTP服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}

// initRepositories 按驱动创建存储，memory 模式不连接数据库
func initRepositories(cfg config.DatabaseConfig, log *zap.Logger) (repository.UserRepository, repository.SubscriptionRepository) {
	if cfg.Driver == dbPkg.DriverMemory {
		log.Warn("使用内存存储，重启后数据丢失")
		return repository.NewMemoryUserRepository(), repository.NewMemorySubscriptionRepository()
	}

	orm, err := dbPkg.InitDB(cfg)
	if err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	log.Info("数据库连接成功")

	// 自动迁移表结构
	if err := dbPkg.AutoMigrate(&model.User{}, &model.Subscription{}); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	return repository.NewUserRepository(orm), repository.NewSubscriptionRepository(orm)
}

// setupBasicRoutes 设置基础路由
func setupBasicRoutes(router *gin.Engine, cfg *config.Config) {
	// 健康检查
	// 完整url为：http://localhost:8000/health
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := dbPkg.HealthCheck(); err != nil {
			status = "db-down"
		}
		result := gin.H{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		}
		if cfg.Redis.Enabled {
			result["redis"] = "ok"
			if err := redisPkg.HealthCheck(c.Request.Context()); err != nil {
				result["redis"] = "down"
			}
		}
		response.Success(c, result)
	})

	// 本地媒体文件
	// 完整url为：http://localhost:8000/media/<key>
	if cfg.Media.Provider == media.ProviderLocal || cfg.Media.Provider == "" {
		router.Static("/media", cfg.Media.LocalDir)
	}
}
