package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents health check status
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "HEALTHY"
	case StatusUnhealthy:
		return "UNHEALTHY"
	case StatusDegraded:
		return "DEGRADED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult represents the result of a health check
type CheckResult struct {
	Name         string        `json:"name"`
	Critical     bool          `json:"critical"`
	Status       Status        `json:"status"`
	Latency      time.Duration `json:"latency_ns"`
	LastCheck    time.Time     `json:"last_check"`
	LastError    string        `json:"last_error,omitempty"`
	CheckCount   int           `json:"check_count"`
	FailureCount int           `json:"failure_count"`
}

// CheckFunc reports a dependency as healthy by returning nil
type CheckFunc func(ctx context.Context) error

type checker struct {
	name     string
	critical bool
	fn       CheckFunc
}

func (c checker) check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.name,
		Critical:  c.critical,
		LastCheck: start,
		Status:    StatusHealthy,
	}

	if err := c.fn(ctx); err != nil {
		result.Status = StatusUnhealthy
		result.LastError = err.Error()
	}
	result.Latency = time.Since(start)
	return result
}

// Report is the aggregate served on the health endpoint
type Report struct {
	Status     Status        `json:"status"`
	Version    string        `json:"version,omitempty"`
	Components []CheckResult `json:"components"`
}

// Monitor runs registered checks on an interval and keeps the latest
// result of each.
type Monitor struct {
	mu       sync.RWMutex
	checkers map[string]checker
	results  map[string]*CheckResult
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
	wg       sync.WaitGroup
}

func NewMonitor(interval time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Monitor{
		checkers: make(map[string]checker),
		results:  make(map[string]*CheckResult),
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds a named check. A failing critical check makes the whole
// report unhealthy; a failing optional one only degrades it.
func (m *Monitor) Register(name string, critical bool, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkers[name] = checker{name: name, critical: critical, fn: fn}

	m.logger.Info("Registered health checker",
		zap.String("name", name),
		zap.Bool("critical", critical),
	)
}

func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.runChecks()
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

func (m *Monitor) runChecks() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckAll(m.ctx)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.CheckAll(m.ctx)
		}
	}
}

// CheckAll runs every registered check once and stores the results
func (m *Monitor) CheckAll(ctx context.Context) {
	m.mu.RLock()
	checkers := make([]checker, 0, len(m.checkers))
	for _, c := range m.checkers {
		checkers = append(checkers, c)
	}
	m.mu.RUnlock()

	for _, c := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		result := c.check(checkCtx)
		cancel()

		m.mu.Lock()
		if existing, ok := m.results[c.name]; ok {
			result.CheckCount = existing.CheckCount + 1
			result.FailureCount = existing.FailureCount
		} else {
			result.CheckCount = 1
		}
		if result.Status == StatusUnhealthy {
			result.FailureCount++
		}
		m.results[c.name] = &result
		m.mu.Unlock()

		if result.Status != StatusHealthy {
			m.logger.Warn("Health check failed",
				zap.String("name", c.name),
				zap.String("status", result.Status.String()),
				zap.Duration("latency", result.Latency),
				zap.String("error", result.LastError),
			)
		}
	}
}

// Report aggregates the latest results. Checks that never ran are run
// inline first.
func (m *Monitor) Report(ctx context.Context) Report {
	m.mu.RLock()
	pending := len(m.results) < len(m.checkers)
	m.mu.RUnlock()

	if pending {
		m.CheckAll(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	report := Report{Status: StatusHealthy, Components: make([]CheckResult, 0, len(m.results))}
	for _, result := range m.results {
		report.Components = append(report.Components, *result)
		if result.Status != StatusUnhealthy {
			continue
		}
		if result.Critical {
			report.Status = StatusUnhealthy
		} else if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	sort.Slice(report.Components, func(i, j int) bool {
		return report.Components[i].Name < report.Components[j].Name
	})
	return report
}

func (m *Monitor) GetResult(name string) (*CheckResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, exists := m.results[name]
	if !exists {
		return nil, false
	}
	resultCopy := *result
	return &resultCopy, true
}
