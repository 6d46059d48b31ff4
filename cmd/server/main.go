package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pingpong/config"
	"pingpong/internal/handler"
	"pingpong/internal/model"
	"pingpong/internal/repository"
	"pingpong/internal/service"
	dbPkg "pingpong/pkg/db"
	"pingpong/pkg/jwt"
	"pingpong/pkg/logger"
	redisPkg "pingpong/pkg/redis"
	"pingpong/pkg/response"
	"pingpong/pkg/storage"
	"pingpong/pkg/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()

	// 2. 初始化日志系统
	log := logger.InitLogger(cfg.Log)
	defer log.Sync()

	log.Info("=== PingPong消息中继启动 ===")
	log.Info("服务器配置信息",
		zap.String("port", cfg.Server.Port),
		zap.String("database_host", cfg.Database.Host),
		zap.Int("database_port", cfg.Database.Port),
		zap.String("database_name", cfg.Database.Database),
		zap.Duration("jwt_expire_time", cfg.JWT.ExpireTime),
		zap.String("upload_dir", cfg.Storage.UploadDir),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化数据库连接
	if _, err := dbPkg.InitDB(cfg.Database); err != nil {
		log.Fatal("数据库连接失败", zap.Error(err))
	}
	defer func() {
		if err := dbPkg.CloseDB(); err != nil {
			log.Error("关闭数据库连接失败", zap.Error(err))
		}
	}()
	log.Info("数据库连接成功")

	// 3.1 自动迁移表结构
	if err := dbPkg.AutoMigrate(&model.User{}, &model.FriendRequest{}, &model.Message{}); err != nil {
		log.Fatal("自动迁移失败", zap.Error(err))
	}
	log.Info("自动迁移完成")

	// 3.2 初始化Redis（在线状态镜像，失败不阻断启动）
	if err := redisPkg.InitRedis(cfg.Redis); err != nil {
		log.Warn("Redis连接失败，在线状态镜像不可用", zap.Error(err))
	} else {
		defer redisPkg.Close()
		log.Info("Redis连接成功")
	}

	// 3.3 初始化文件存储
	store, err := storage.NewLocalStore(cfg.Storage)
	if err != nil {
		log.Fatal("文件存储初始化失败", zap.Error(err))
	}

	// 3.4 初始化业务服务
	jwtSvc := jwt.NewJWTService(cfg.JWT)
	registry := websocket.NewRegistry()
	userRepo := repository.NewUserRepository(dbPkg.GetDB())
	friendRepo := repository.NewFriendRepository(dbPkg.GetDB())
	messageRepo := repository.NewMessageRepository(dbPkg.GetDB())
	userSvc := service.NewUserService(userRepo, jwtSvc)
	friendSvc := service.NewFriendService(friendRepo, userRepo)
	messageSvc := service.NewMessageService(messageRepo, userRepo, friendSvc, registry)
	userHandler := handler.NewUserHandler(userSvc, registry)
	friendHandler := handler.NewFriendHandler(friendSvc, registry)
	messageHandler := handler.NewMessageHandler(messageSvc)
	fileHandler := handler.NewFileHandler(messageSvc, store, cfg.Storage)
	wsHandler := handler.NewWSHandler(jwtSvc, userRepo, messageSvc, registry, cfg.WebSocket)

	// 4. 设置Gin模式
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 5. 创建Gin路由
	router := gin.New()

	// 使用中间件
	router.Use(logger.LoggerMiddleware())      // 自定义日志中间件
	router.Use(logger.ErrorLoggerMiddleware()) // 错误日志中间件

	// 6. 基础路由
	// 健康检查：http://localhost:8080/health
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := dbPkg.HealthCheck(); err != nil {
			status = "db-down"
		}
		redisStatus := "ok"
		if err := redisPkg.HealthCheck(); err != nil {
			redisStatus = "down"
		}
		response.Success(c, gin.H{
			"status":       status,
			"redis":        redisStatus,
			"online_count": registry.Count(),
			"time":         time.Now().Format(time.RFC3339),
		})
	})

	// 上传文件静态下载路由
	router.Static(store.URLPrefix(), store.Dir())

	// 6.1 API路由
	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			// 公开接口（无需认证）
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			// 需要认证的接口
			authUsers := users.Group("")
			authUsers.Use(jwtSvc.AuthMiddleware())
			{
				authUsers.GET("/profile", userHandler.GetProfile)
				authUsers.POST("/logout", userHandler.Logout)
				authUsers.GET("/online", userHandler.GetOnlineUsers)
				authUsers.GET("/:username/online", userHandler.CheckUserOnline)
			}
		}

		// 好友路由（需要认证）
		friends := v1.Group("/friends")
		friends.Use(jwtSvc.AuthMiddleware())
		{
			friends.POST("/request", friendHandler.SendRequest) // 发起好友请求
			friends.POST("/respond", friendHandler.Respond)     // 响应好友请求
			friends.GET("", friendHandler.GetSummary)           // 好友关系汇总
		}

		// 私聊消息历史（需要认证）
		conversations := v1.Group("/conversations")
		conversations.Use(jwtSvc.AuthMiddleware())
		{
			conversations.GET("/:username/messages", messageHandler.GetConversationMessages)
		}

		// 文件分享（需要认证）
		files := v1.Group("/files")
		files.Use(jwtSvc.AuthMiddleware())
		{
			files.POST("/upload", fileHandler.Upload)
		}
	}

	// WebSocket路由
	router.GET("/ws", wsHandler.Handle)

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
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 关闭HTTP服务器
	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP服务器关闭失败", zap.Error(err))
	}

	log.Info("服务器已安全关闭")
}
