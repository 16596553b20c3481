package worker

import (
	"context"
	"errors"
	"time"

	"github.com/timestamp-store/internal/config"
	"github.com/timestamp-store/internal/logger"
	"github.com/timestamp-store/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	defaultOfferExpireInterval    = time.Hour
	defaultAccountCleanupInterval = 15 * time.Minute
	sessionSweepInterval          = 5 * time.Minute
)

// Service 异步队列服务
type Service struct {
	name   string
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:   "worker",
		server: server,
		mux:    mux,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// Scheduler 定时任务（活动过期、未验证账号清理、内存会话回收），不依赖队列
type Scheduler struct {
	consumer *Consumer
	jobs     config.JobsConfig
	done     chan struct{}
}

// NewScheduler 创建定时任务服务
func NewScheduler(jobs config.JobsConfig, consumer *Consumer) (*Scheduler, error) {
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	return &Scheduler{consumer: consumer, jobs: jobs, done: make(chan struct{})}, nil
}

// Name 服务名称
func (s *Scheduler) Name() string {
	return "scheduler"
}

// Start 启动定时任务，直到 ctx 取消或 Stop
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	finished := make(chan struct{}, 3)
	go func() {
		runPeriodic(ctx, "offer_expire", intervalOrDefault(s.jobs.OfferExpireIntervalMinutes, defaultOfferExpireInterval), func() error {
			return s.consumer.handleOfferExpire(ctx, nil)
		})
		finished <- struct{}{}
	}()
	go func() {
		runPeriodic(ctx, "account_cleanup", intervalOrDefault(s.jobs.AccountCleanupIntervalMinutes, defaultAccountCleanupInterval), func() error {
			return s.consumer.handleAccountCleanup(ctx, nil)
		})
		finished <- struct{}{}
	}()
	go func() {
		runPeriodic(ctx, "session_sweep", sessionSweepInterval, s.sweepSessions)
		finished <- struct{}{}
	}()
	<-finished
	<-finished
	<-finished
	return nil
}

// sessionSweeper 进程内会话存储需要定期回收过期键，Redis 依赖 TTL
type sessionSweeper interface {
	Sweep() int
}

func (s *Scheduler) sweepSessions() error {
	if s.consumer.Container == nil {
		return nil
	}
	sweeper, ok := s.consumer.SessionStore.(sessionSweeper)
	if !ok {
		return nil
	}
	if removed := sweeper.Sweep(); removed > 0 {
		logger.Debugw("session_sweep_done", "removed", removed)
	}
	return nil
}

// Stop 停止定时任务
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return nil
}

func runPeriodic(ctx context.Context, job string, interval time.Duration, run func() error) {
	runOnce := func() {
		if err := run(); err != nil {
			logger.Warnw("worker_periodic_job_failed", "job", job, "error", err)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func intervalOrDefault(minutes int, fallback time.Duration) time.Duration {
	if minutes <= 0 {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}
