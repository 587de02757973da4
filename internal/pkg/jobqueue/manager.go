package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BizFox/internal/pkg/metrics/prom"
)

// Task is a periodic background task run by the Manager
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Manager owns the job queue and the periodic background tasks
type Manager struct {
	queue   *Queue
	tasks   []Task
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// DefaultWorkers is used when JOBQUEUE_WORKERS is unset
const DefaultWorkers = 3

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = NewManager(NewQueue(DefaultWorkers))
	})
	return globalManager
}

// SetManager replaces the global manager. Used at startup with a configured queue.
func SetManager(m *Manager) {
	managerOnce.Do(func() {})
	globalManager = m
}

// NewManager wraps queue. The queue depth gauge task is always registered.
func NewManager(queue *Queue) *Manager {
	m := &Manager{
		queue:  queue,
		stopCh: make(chan struct{}),
	}
	m.AddTask(Task{Name: "queue depth", Interval: 15 * time.Second, Run: m.recordDepth})
	return m
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// AddTask registers a periodic task. Tasks added while running start on the next Start.
func (m *Manager) AddTask(t Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, t)
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	for _, t := range m.tasks {
		m.wg.Add(1)
		go m.taskWorker(t, m.stopCh)
	}

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the background tasks, then the job queue
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")
	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) taskWorker(t Task, stopCh chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	log.Infof("[JobQueue Manager] Started %s worker (interval: %s)", t.Name, t.Interval)

	for {
		select {
		case <-stopCh:
			log.Infof("[JobQueue Manager] %s worker stopping", t.Name)
			return
		case <-ticker.C:
			if err := t.Run(context.Background()); err != nil {
				log.Errorf("[JobQueue Manager] %s error: %v", t.Name, err)
			}
		}
	}
}

func (m *Manager) recordDepth(ctx context.Context) error {
	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		return err
	}
	processing, err := m.queue.GetProcessingSize(ctx)
	if err != nil {
		return err
	}
	prom.JobQueueDepth.WithLabelValues(string(JobStatusPending)).Set(float64(pending))
	prom.JobQueueDepth.WithLabelValues(string(JobStatusProcessing)).Set(float64(processing))
	return nil
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
