package dispatch

import (
	"sync"
	"time"
)

type Status string

const (
	StatusQueued    Status = "Queued"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusFailed    Status = "Failed"
	StatusSkipped   Status = "Skipped"
)

const maxLogLines = 100

type ExecutionStatus struct {
	Status    Status
	UpToDate  bool
	StartTime time.Time
	EndTime   time.Time
	LogLines  []string
}

// StatusManager tracks per-target execution state. The dispatcher
// writes from its own goroutine while the status UI reads, so access
// is guarded.
type StatusManager interface {
	SetStatus(name string, status Status)
	Start(name string)
	Finish(name string, status Status)
	MarkUpToDate(name string)
	AppendLog(name, line string)
	Get(name string) (ExecutionStatus, bool)
	Snapshot() map[string]ExecutionStatus
}

type statusManager struct {
	statusMap map[string]*ExecutionStatus
	mu        sync.Mutex
}

func NewStatusManager() StatusManager {
	return &statusManager{
		statusMap: make(map[string]*ExecutionStatus),
	}
}

func (sm *statusManager) SetStatus(name string, status Status) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.statusMap[name] = &ExecutionStatus{Status: status}
}

func (sm *statusManager) Start(name string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	status := sm.entry(name)
	status.Status = StatusRunning
	status.StartTime = time.Now()
}

func (sm *statusManager) Finish(name string, terminal Status) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	status := sm.entry(name)
	status.Status = terminal
	status.EndTime = time.Now()
}

func (sm *statusManager) MarkUpToDate(name string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	status := sm.entry(name)
	status.Status = StatusCompleted
	status.UpToDate = true
	status.EndTime = time.Now()
}

func (sm *statusManager) AppendLog(name, line string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	status := sm.entry(name)
	status.LogLines = append(status.LogLines, line)
	if len(status.LogLines) > maxLogLines {
		status.LogLines = status.LogLines[len(status.LogLines)-maxLogLines:]
	}
}

func (sm *statusManager) Get(name string) (ExecutionStatus, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	status, ok := sm.statusMap[name]
	if !ok {
		return ExecutionStatus{}, false
	}
	return *status, true
}

func (sm *statusManager) Snapshot() map[string]ExecutionStatus {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	snapshot := make(map[string]ExecutionStatus, len(sm.statusMap))
	for name, status := range sm.statusMap {
		snapshot[name] = *status
	}
	return snapshot
}

func (sm *statusManager) entry(name string) *ExecutionStatus {
	status, ok := sm.statusMap[name]
	if !ok {
		status = &ExecutionStatus{Status: StatusQueued}
		sm.statusMap[name] = status
	}
	return status
}
