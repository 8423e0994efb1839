package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	mediaGrpc "media-service/ddd/adapter/grpc"
	mediaApp "media-service/ddd/application/app"
	"media-service/internal/resource"
	"media-service/pkg/config"
	"media-service/pkg/logger"
	"media-service/pkg/manager"
	"media-service/pkg/middleware"
	"media-service/pkg/registry"
	"media-service/pkg/task"

	_ "media-service/ddd/adapter/http"
	_ "media-service/ddd/infrastructure/worker"
)

const serviceName = "media-service"

// Run 启动 HTTP 接口，同进程内运行转码 Worker（worker.enabled）
func Run() {
	cfg, logService := bootstrap()

	// 资源管理器初始化
	logger.Infof("Initializing resource manager...")
	manager.MustInitResources()
	defer manager.CloseResources()
	logger.Infof("Resource manager initialized")

	// 创建依赖注入容器
	deps := &manager.Dependencies{
		DB:              resource.DefaultMysqlResource().MainDB(),
		Config:          cfg,
		MediaAppService: mediaApp.DefaultMediaApp(),
	}

	// 初始化所有组件
	logger.Infof("Initializing components...")
	manager.MustInitComponents(deps)
	if err := task.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}
	logger.Infof("All components initialized")

	// gRPC 只提供健康检查
	var grpcServer *mediaGrpc.HealthServer
	grpcAddr := ""
	if cfg.GRPCServer.Enabled {
		grpcAddr = cfg.GRPCServer.GetGRPCAddr()
		grpcListener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			logger.Fatal(fmt.Sprintf("Failed to listen on gRPC port address=%s error=%v", grpcAddr, err))
		}
		grpcServer = mediaGrpc.NewHealthServer(serviceName)
		go func() {
			if err := grpcServer.Serve(grpcListener); err != nil {
				logger.Errorf("gRPC server encountered an error error=%v", err)
			}
		}()
	}

	// 创建Gin引擎
	logger.Infof("Creating HTTP routes...")
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestContextMiddleware(), middleware.AccessLogMiddleware())

	// 添加健康检查端点
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   serviceName,
			"timestamp": time.Now().Unix(),
		})
	})

	// 注册所有路由
	manager.RegisterAllRoutes(router)
	logger.Infof("Routes registered")

	// 启动HTTP服务器
	port := getEnv("PORT", strconv.Itoa(cfg.Server.Port))
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("Failed to start HTTP server error=%v", err))
		}
	}()
	logger.Infof("HTTP server started addr=%s service=%s health_url=%s api_url=%s", server.Addr, serviceName,
		fmt.Sprintf("http://localhost:%s/health", port), fmt.Sprintf("http://localhost:%s/api/v1/media", port))

	// 服务注册
	reg := registerService(cfg, net.JoinHostPort(advertiseHost(cfg), port), grpcAddr)

	waitForSignal()
	logger.Infof("Received shutdown signal, shutting down server...")

	// 先摘除流量
	if reg != nil {
		if err := reg.Deregister(); err != nil {
			logger.Warnf("Service deregister failed error=%v", err)
		}
	}
	if grpcServer != nil {
		grpcServer.MarkNotServing()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to close error=%v", err)
	}

	stopBackground(cfg)
	if grpcServer != nil {
		grpcServer.Shutdown()
	}

	logger.Infof("Server exited safely")
	if logService != nil {
		logService.Close()
	}
	fmt.Println("[SHUTDOWN] Media service exited safely")
}

// RunWorker 只运行转码 Worker，不对外提供 HTTP，适合配合 redis 队列横向扩容
func RunWorker() {
	cfg, logService := bootstrap()
	cfg.Worker.Enabled = true
	if err := checkStandaloneWorker(cfg); err != nil {
		logger.Fatal(err.Error())
	}

	manager.MustInitResources()
	defer manager.CloseResources()

	manager.MustInitComponents(&manager.Dependencies{
		DB:     resource.DefaultMysqlResource().MainDB(),
		Config: cfg,
	})
	if err := task.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}
	logger.Infof("Media worker started worker_id=%s queue_driver=%s concurrency=%d",
		cfg.Worker.WorkerID, cfg.Worker.QueueDriver, cfg.Worker.MaxConcurrentTasks)

	waitForSignal()
	logger.Infof("Received shutdown signal, stopping worker...")
	stopBackground(cfg)

	if logService != nil {
		logService.Close()
	}
	fmt.Println("[SHUTDOWN] Media worker exited safely")
}

// checkStandaloneWorker 独立 Worker 只能消费共享队列，内存队列收不到上传进程的任务
func checkStandaloneWorker(cfg *config.Config) error {
	if cfg.Worker.QueueDriver != config.QueueDriverRedis {
		return fmt.Errorf("standalone worker requires worker.queue_driver=%s, got %q", config.QueueDriverRedis, cfg.Worker.QueueDriver)
	}
	return nil
}

// bootstrap 加载配置并初始化日志
func bootstrap() (*config.Config, *logger.Logger) {
	// 先使用标准输出确保能看到日志
	fmt.Println("[STARTUP] Starting media service...")

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	// 设置全局配置（必须在资源管理器初始化之前）
	config.SetGlobalConfig(cfg)
	fmt.Printf("[STARTUP] Config file loaded: %s\n", cfgPath)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	logger.Debug("Logger initialized", map[string]interface{}{
		"level":  cfg.Log.Level,
		"format": cfg.Log.Format,
		"output": cfg.Log.Output,
	})

	if cfg.Worker.Enabled {
		checkEncoder(cfg)
	}
	return cfg, logService
}

// checkEncoder 启动时检查 FFmpeg，缺失时任务会按编码器不可用重试
func checkEncoder(cfg *config.Config) {
	ffmpegBin := strings.TrimSpace(cfg.Transcode.FFmpeg.BinaryPath)
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpegBin); err != nil {
		logger.Warnf("FFmpeg binary not found, transcode attempts will fail until it is installed binary=%s error=%v", ffmpegBin, err)
		return
	}
	if strings.Contains(strings.ToLower(cfg.Transcode.FFmpeg.VideoCodec), "nvenc") {
		cmd := exec.Command(ffmpegBin, "-hide_banner", "-encoders")
		if out, err := cmd.Output(); err == nil {
			if !strings.Contains(strings.ToLower(string(out)), "nvenc") {
				logger.Warnf("NVENC encoder not detected in FFmpeg, codec=%s", cfg.Transcode.FFmpeg.VideoCodec)
			}
		}
	}
}

// stopBackground 停止 Worker，超过宽限期后不再等待
func stopBackground(cfg *config.Config) {
	done := make(chan struct{})
	go func() {
		if err := task.StopAll(); err != nil {
			logger.Warnf("Background tasks stopped with error error=%v", err)
		}
		manager.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Infof("Components closed")
	case <-time.After(cfg.Worker.ShutdownGracePeriod):
		logger.Warnf("Components did not stop within grace period=%s", cfg.Worker.ShutdownGracePeriod)
	}
}

func registerService(cfg *config.Config, httpAddr, grpcAddr string) *registry.ServiceRegistry {
	if !cfg.ServiceRegistry.Enabled {
		return nil
	}
	serviceID := cfg.ServiceRegistry.ServiceID
	if serviceID == "" {
		serviceID = fmt.Sprintf("%s-%s", cfg.ServiceRegistry.ServiceName, httpAddr)
	}
	reg, err := registry.NewServiceRegistry(cfg.ServiceRegistry, registry.Instance{
		ServiceID: serviceID,
		HTTPAddr:  httpAddr,
		GRPCAddr:  grpcAddr,
		Metadata:  map[string]string{"worker_enabled": strconv.FormatBool(cfg.Worker.Enabled)},
	})
	if err != nil {
		logger.Warnf("Service registry unavailable error=%v", err)
		return nil
	}
	if err := reg.Register(); err != nil {
		logger.Warnf("Service register failed error=%v", err)
		_ = reg.Deregister()
		return nil
	}
	return reg
}

func advertiseHost(cfg *config.Config) string {
	if cfg.ServiceRegistry.RegisterHost != "" {
		return cfg.ServiceRegistry.RegisterHost
	}
	if cfg.Server.Host != "" && cfg.Server.Host != "0.0.0.0" {
		return cfg.Server.Host
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "127.0.0.1"
}

func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// resolveConfigPath 根据环境选择配置文件，支持CONFIG_PATH覆盖、CONFIG_ENV区分环境
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config_prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
