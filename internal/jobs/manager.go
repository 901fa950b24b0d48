package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/structa/knowledge-backend/internal/platform/logger"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

const maxErrorLen = 240

// Record is the lifecycle state of one submitted job. A record moves
// queued -> running -> completed|failed exactly once.
type Record struct {
	ID          string     `json:"job_id"`
	Status      Status     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Worker is the unit of work a job executes. The returned value becomes
// the record's result; a non-nil error marks the job failed.
type Worker func(ctx context.Context) (any, error)

// Manager runs submitted work on a fixed-size worker pool and keeps the
// job ledger in memory. The ledger is pruned on every mutation: terminal
// records older than recordTTL (from finished_at) are dropped, and the
// oldest records are evicted once maxRecords is exceeded regardless of
// TTL. A poll that races a prune sees not_found; callers treat that as
// "result no longer available".
type Manager struct {
	mu      sync.Mutex
	records map[string]*Record
	order   []string

	tasks      chan task
	recordTTL  time.Duration
	maxRecords int
	log        *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

type task struct {
	id     string
	worker Worker
}

type Config struct {
	Concurrency int
	QueueSize   int
	RecordTTL   time.Duration
	MaxRecords  int
}

func NewManager(cfg Config, log *logger.Logger) *Manager {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.RecordTTL <= 0 {
		cfg.RecordTTL = 30 * time.Minute
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 200
	}
	if log != nil {
		log = log.With("component", "JobManager")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		records:    make(map[string]*Record),
		tasks:      make(chan task, cfg.QueueSize),
		recordTTL:  cfg.RecordTTL,
		maxRecords: cfg.MaxRecords,
		log:        log,
		ctx:        ctx,
		cancel:     cancel,
		now:        time.Now,
	}
	for i := 0; i < cfg.Concurrency; i++ {
		m.wg.Add(1)
		go m.run()
	}
	return m
}

// Submit records a queued job and returns immediately. The returned
// snapshot carries the job id clients poll with.
func (m *Manager) Submit(worker Worker) (Record, bool) {
	id := uuid.New().String()
	rec := &Record{
		ID:          id,
		Status:      StatusQueued,
		SubmittedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.records[id] = rec
	m.order = append(m.order, id)
	m.pruneLocked()
	snapshot := *rec
	m.mu.Unlock()

	select {
	case m.tasks <- task{id: id, worker: worker}:
		return snapshot, true
	default:
		m.fail(id, "job queue full")
		snapshot.Status = StatusFailed
		snapshot.Error = "job queue full"
		return snapshot, false
	}
}

// Get returns a snapshot of the job record. includeResult=false strips
// the (possibly large) result payload from the snapshot.
func (m *Manager) Get(id string, includeResult bool) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	snapshot := *rec
	if !includeResult {
		snapshot.Result = nil
	}
	return snapshot, true
}

// Close stops the workers after in-flight jobs finish. Queued jobs that
// never started stay queued in the ledger until pruned.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case t := <-m.tasks:
			m.execute(t)
		}
	}
}

func (m *Manager) execute(t task) {
	if !m.markRunning(t.id) {
		// Record pruned before the worker got to it.
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if m.log != nil {
				m.log.Error("job handler panic", "job_id", t.id, "panic", r)
			}
			m.fail(t.id, "panic during job execution")
		}
	}()

	result, err := t.worker(m.ctx)
	if err != nil {
		m.fail(t.id, err.Error())
		return
	}
	m.complete(t.id, result)
}

func (m *Manager) markRunning(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return false
	}
	if rec.StartedAt == nil {
		started := m.now().UTC()
		rec.StartedAt = &started
	}
	rec.Status = StatusRunning
	m.pruneLocked()
	return true
}

func (m *Manager) complete(id string, result any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return
	}
	finished := m.now().UTC()
	rec.Status = StatusCompleted
	rec.Result = result
	rec.FinishedAt = &finished
	m.pruneLocked()
}

func (m *Manager) fail(id, reason string) {
	if len(reason) > maxErrorLen {
		reason = reason[:maxErrorLen]
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return
	}
	finished := m.now().UTC()
	rec.Status = StatusFailed
	rec.Error = reason
	rec.FinishedAt = &finished
	m.pruneLocked()
}

func (m *Manager) pruneLocked() {
	now := m.now()
	kept := m.order[:0]
	for _, id := range m.order {
		rec, ok := m.records[id]
		if !ok {
			continue
		}
		if rec.FinishedAt != nil && now.Sub(*rec.FinishedAt) > m.recordTTL {
			delete(m.records, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept

	for len(m.order) > m.maxRecords {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.records, oldest)
	}
}
