package worker

import (
	"context"
	"fmt"
	"time"

	"media-service/ddd/infrastructure/database/persistence"
	"media-service/ddd/infrastructure/queue"
	"media-service/ddd/infrastructure/storage"
	"media-service/internal/resource"
	"media-service/pkg/config"
	"media-service/pkg/logger"
	"media-service/pkg/manager"
	"media-service/pkg/task"
)

// TranscodeWorkerComponentPlugin 负责启动转码Worker
type TranscodeWorkerComponentPlugin struct{}

func (p *TranscodeWorkerComponentPlugin) Name() string {
	return "transcodeWorkerComponent"
}

func (p *TranscodeWorkerComponentPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	if !cfg.Worker.Enabled {
		return &transcodeWorkerComponent{name: "transcodeWorker"}
	}

	db := deps.DB
	if db == nil {
		db = resource.DefaultMysqlResource().MainDB()
	}
	mediaRepo := persistence.NewMediaAssetRepository(db)
	job, err := NewTranscodeJobFromConfig(cfg, mediaRepo, storage.DefaultLocalStorage())
	if err != nil {
		panic(fmt.Sprintf("invalid transcode config: %v", err))
	}

	policy := RetryPolicyFromConfig(cfg)
	taskQueue := queue.DefaultTaskQueue()
	return &transcodeWorkerComponent{
		name:      "transcodeWorker",
		worker:    NewTranscodeWorker(cfg.Worker.WorkerID, taskQueue, job, policy, cfg.Worker.MaxConcurrentTasks),
		recovery:  NewPendingRecovery(mediaRepo, taskQueue, job, cfg.Storage, policy),
		workerCfg: cfg.Worker,
	}
}

type transcodeWorkerComponent struct {
	name      string
	worker    TranscodeWorker
	recovery  *PendingRecovery
	workerCfg config.WorkerConfig
}

func (c *transcodeWorkerComponent) Start() error {
	if c.worker == nil {
		logger.Infof("Transcode worker disabled name=%s", c.name)
		return nil
	}

	// 注册后台任务，让应用启动时统一管理
	task.Register(&task.Func{TaskName: c.name, StartFunc: c.start, StopFunc: c.worker.Stop})
	logger.Infof("Transcode worker component registered background task name=%s", c.name)
	return nil
}

// start 启动 Worker 后接管无人处理的记录
func (c *transcodeWorkerComponent) start(ctx context.Context) error {
	if err := c.worker.Start(ctx); err != nil {
		return err
	}
	cutoff, ok := RecoveryCutoff(c.workerCfg, time.Now())
	if !ok || c.recovery == nil {
		return nil
	}
	if _, err := c.recovery.Run(ctx, cutoff); err != nil {
		logger.Warnf("Pending media recovery failed err=%v", err)
	}
	return nil
}

func (c *transcodeWorkerComponent) Stop() error {
	// 背景任务由 task.Manager 控制停止，这里只关闭队列
	queue.CloseDefaultTaskQueue()
	logger.Infof("Transcode worker component stopped name=%s", c.name)
	return nil
}

func (c *transcodeWorkerComponent) GetName() string {
	return c.name
}
