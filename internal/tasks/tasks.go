package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vikasavnish/tradehub/internal/logger"
	"github.com/vikasavnish/tradehub/internal/models"
)

// Manager handles the execution of scheduled tasks
type Manager struct {
	tasks []Task
}

// Task represents a scheduled task that needs to be executed
type Task interface {
	Start()
	Stop()
}

// NewManager creates a new task manager
func NewManager() *Manager {
	return &Manager{
		tasks: make([]Task, 0),
	}
}

// RegisterTask registers a task with the manager
func (m *Manager) RegisterTask(task Task) {
	m.tasks = append(m.tasks, task)
}

// StartScheduledTasks starts all registered tasks
func (m *Manager) StartScheduledTasks() {
	for _, task := range m.tasks {
		task.Start()
	}
	logger.Info("Started all scheduled tasks", zap.Int("tasks", len(m.tasks)))
}

// StopAllTasks stops all running tasks
func (m *Manager) StopAllTasks() {
	for _, task := range m.tasks {
		task.Stop()
	}
	logger.Info("Stopped all scheduled tasks")
}

// DashboardSource builds the aggregated view
type DashboardSource interface {
	Dashboard(ctx context.Context) (models.Dashboard, error)
}

// Publisher pushes a message to every subscriber
type Publisher interface {
	Broadcast(msg models.Message)
}

// BroadcastTask pushes the aggregated dashboard on a fixed period
type BroadcastTask struct {
	source   DashboardSource
	hub      Publisher
	interval time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// NewBroadcastTask creates a broadcast task ticking every interval
func NewBroadcastTask(source DashboardSource, hub Publisher, interval time.Duration) *BroadcastTask {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &BroadcastTask{
		source:   source,
		hub:      hub,
		interval: interval,
	}
}

// Start begins broadcasting; a running task is left alone
func (t *BroadcastTask) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopChan != nil {
		return
	}

	t.stopChan = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(t.stopChan, t.done)

	logger.Info("Broadcast task started", zap.Duration("interval", t.interval))
}

// Stop terminates the task and waits for the loop to exit
func (t *BroadcastTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopChan == nil {
		return
	}

	close(t.stopChan)
	<-t.done
	t.stopChan, t.done = nil, nil
	logger.Info("Broadcast task stopped")
}

func (t *BroadcastTask) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.broadcast()
		case <-stop:
			return
		}
	}
}

func (t *BroadcastTask) broadcast() {
	ctx, cancel := context.WithTimeout(context.Background(), t.interval)
	defer cancel()

	view, err := t.source.Dashboard(ctx)
	if err != nil {
		logger.Warn("build dashboard", zap.Error(err))
		return
	}
	t.hub.Broadcast(models.Message{Type: models.MessageDashboardUpdate, Content: view})
}
