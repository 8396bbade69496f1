// Package jobs runs background child processes (OAuth logins, generic CLI
// admin commands) with buffered logs and URL extraction, independent of the
// synchronous CLI Executor used for model responses.
package jobs

import (
	"sync"
	"time"

	"github.com/relaywell/cligateway/internal/core/domain"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Record is a defensively-copied, read-only view of one job, safe to hand
// to a caller outside the supervising goroutine.
type Record struct {
	ID         string
	Tag        string
	Command    string
	Args       []string
	Status     Status
	StartedAt  time.Time
	FinishedAt *time.Time
	ExitCode   *int
	URLs       []string
	Logs       []string
}

// job is the mutable record a single supervising goroutine writes to.
// Every field access outside that goroutine must go through a method that
// takes mu.
type job struct {
	id      string
	tag     string
	command string
	args    []string

	mu         sync.Mutex
	status     Status
	startedAt  time.Time
	finishedAt *time.Time
	exitCode   *int
	urls       []string
	urlSeen    map[string]struct{}
	logs       *ringBuffer
}

func newJob(id, tag string, spec domain.CommandSpec, maxLogLines int) *job {
	return &job{
		id:        id,
		tag:       tag,
		command:   spec.Executable,
		args:      append([]string(nil), spec.Args...),
		status:    StatusRunning,
		startedAt: time.Now(),
		urlSeen:   make(map[string]struct{}),
		logs:      newRingBuffer(maxLogLines),
	}
}

// appendLog pushes a line into the job's ring buffer and extracts any new
// URLs from it.
func (j *job) appendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.logs.append(line)
	for _, u := range extractURLs(line) {
		if _, dup := j.urlSeen[u]; dup {
			continue
		}
		j.urlSeen[u] = struct{}{}
		j.urls = append(j.urls, u)
	}
}

// finish transitions the job to a terminal status.
func (j *job) finish(status Status, exitCode *int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	now := time.Now()
	j.finishedAt = &now
	j.exitCode = exitCode
}

func (j *job) snapshot() Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Record{
		ID:         j.id,
		Tag:        j.tag,
		Command:    j.command,
		Args:       append([]string(nil), j.args...),
		Status:     j.status,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
		ExitCode:   j.exitCode,
		URLs:       append([]string(nil), j.urls...),
		Logs:       j.logs.snapshot(),
	}
}
