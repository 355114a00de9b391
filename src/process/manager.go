package process

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"screen-qr-scan/src/messages"
	"screen-qr-scan/src/router"
)

// Process interface defines the lifecycle methods for all processes
type Process interface {
	// Start registers the process inbox and launches its loop. It must not block.
	Start(ctx context.Context, router *router.Router) error

	// Stop gracefully shuts down the process and waits for its loop to exit
	Stop() error

	// IsRunning returns true if the process loop is currently running
	IsRunning() bool

	// Name returns the process name for identification
	Name() string
}

// ProcessState represents the current state of a process
type ProcessState int

const (
	StateStopped ProcessState = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s ProcessState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// ProcessInfo holds information about a managed process
type ProcessInfo struct {
	Process    Process
	State      ProcessState
	StartTime  time.Time
	CrashCount int
	LastError  error
	Context    context.Context
	CancelFunc context.CancelFunc
}

// Manager owns the router and the lifecycle of the trigger and page processes.
type Manager struct {
	processes map[string]*ProcessInfo
	order     []string
	router    *router.Router
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewManager creates a new process manager whose processes live until ctx ends or StopAll.
func NewManager(ctx context.Context) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		processes: make(map[string]*ProcessInfo),
		router:    router.NewRouter(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Register adds a process to the manager. StartAll starts processes in registration order.
func (m *Manager) Register(process Process) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := process.Name()
	if _, exists := m.processes[name]; exists {
		return fmt.Errorf("process %s already registered", name)
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.processes[name] = &ProcessInfo{
		Process:    process,
		State:      StateStopped,
		Context:    ctx,
		CancelFunc: cancel,
	}
	m.order = append(m.order, name)

	log.Debugf("Process %s registered", name)
	return nil
}

// Start starts a specific process
func (m *Manager) Start(name string) (err error) {
	m.mu.Lock()
	info, exists := m.processes[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("process %s not found", name)
	}
	if info.State == StateRunning {
		m.mu.Unlock()
		return fmt.Errorf("process %s already running", name)
	}
	info.State = StateStarting
	info.StartTime = time.Now()
	if info.Context.Err() != nil {
		info.Context, info.CancelFunc = context.WithCancel(m.ctx)
	}
	ctx := info.Context
	m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			m.markCrashed(name, err)
		}
	}()

	log.Debugf("Starting process %s", name)
	startErr := info.Process.Start(ctx, m.router)

	m.mu.Lock()
	defer m.mu.Unlock()
	if startErr != nil {
		info.State = StateCrashed
		info.LastError = startErr
		info.CrashCount++
		log.Errorf("Process %s failed to start: %v", name, startErr)
		return startErr
	}
	info.State = StateRunning
	log.Debugf("Process %s started", name)
	return nil
}

// StartAll starts all registered processes in registration order
func (m *Manager) StartAll() error {
	m.mu.RLock()
	names := append([]string(nil), m.order...)
	m.mu.RUnlock()

	for _, name := range names {
		if err := m.Start(name); err != nil {
			return fmt.Errorf("failed to start process %s: %w", name, err)
		}
	}
	return nil
}

// Stop stops a specific process
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	info, exists := m.processes[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("process %s not found", name)
	}
	if info.State != StateRunning {
		m.mu.Unlock()
		return nil
	}
	info.State = StateStopping
	m.mu.Unlock()

	log.Debugf("Stopping process %s", name)
	info.CancelFunc()
	if err := info.Process.Stop(); err != nil {
		log.Warnf("Error stopping process %s: %v", name, err)
	}
	// Free the inbox so a later Start can register it again.
	m.router.UnregisterProcess(name)

	m.mu.Lock()
	info.State = StateStopped
	m.mu.Unlock()
	return nil
}

// StopAll broadcasts DIENOW, stops every process in reverse start order and shuts the router down
func (m *Manager) StopAll() {
	log.Debugf("Stopping all processes...")

	m.router.Broadcast(messages.MessageEnvelope{
		From:    messages.ProcessMain,
		To:      "*",
		Message: messages.DIENOW{},
	})

	m.mu.RLock()
	names := append([]string(nil), m.order...)
	m.mu.RUnlock()

	for i := len(names) - 1; i >= 0; i-- {
		_ = m.Stop(names[i])
	}

	m.cancel()
	m.router.Shutdown()
	log.Debugf("All processes stopped")
}

// Router returns the message router shared by the managed processes
func (m *Manager) Router() *router.Router {
	return m.router
}

// GetStatus returns the status of all processes
func (m *Manager) GetStatus() map[string]ProcessState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]ProcessState)
	for name, info := range m.processes {
		status[name] = info.State
	}
	return status
}

func (m *Manager) markCrashed(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if info, exists := m.processes[name]; exists {
		info.State = StateCrashed
		info.LastError = err
		info.CrashCount++
		log.Errorf("Process %s crashed: %v (crash count: %d)", name, err, info.CrashCount)
	}
}
