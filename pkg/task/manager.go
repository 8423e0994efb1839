package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"media-service/pkg/logger"
)

// BackgroundTask represents a long-running background process (worker pool, queue promoter).
type BackgroundTask interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// Manager starts registered tasks in order and stops them in reverse.
type Manager struct {
	tasks   []BackgroundTask
	started []BackgroundTask
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

var defaultManager = NewManager()

// Register adds a background task on the process-wide manager.
func Register(task BackgroundTask) { defaultManager.Register(task) }

// StartAll starts the process-wide manager.
func StartAll(ctx context.Context) error { return defaultManager.StartAll(ctx) }

// StopAll stops the process-wide manager.
func StopAll() error { return defaultManager.StopAll() }

// Register adds a task; must be called before StartAll.
func (m *Manager) Register(task BackgroundTask) {
	if task == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
}

// StartAll starts every registered task once. If one fails, the tasks already
// started are stopped before the error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	for _, t := range m.tasks {
		if err := t.Start(runCtx); err != nil {
			m.stopLocked()
			return fmt.Errorf("start background task %s: %w", t.Name(), err)
		}
		m.started = append(m.started, t)
		logger.Infof("Background task started name=%s", t.Name())
	}
	return nil
}

// StopAll cancels the shared context and stops started tasks in reverse order.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked()
}

func (m *Manager) stopLocked() error {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		t := m.started[i]
		if err := t.Stop(); err != nil {
			logger.Warnf("Background task stop failed name=%s error=%v", t.Name(), err)
			errs = append(errs, err)
			continue
		}
		logger.Infof("Background task stopped name=%s", t.Name())
	}
	m.started = nil
	return errors.Join(errs...)
}

// Func adapts start/stop functions to BackgroundTask.
type Func struct {
	TaskName  string
	StartFunc func(ctx context.Context) error
	StopFunc  func() error
}

func (f *Func) Name() string { return f.TaskName }

func (f *Func) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

func (f *Func) Stop() error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc()
}
