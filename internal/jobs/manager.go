package jobs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/relaywell/cligateway/internal/core/domain"
	"github.com/relaywell/cligateway/internal/template"
)

// killGrace mirrors internal/cliexec's SIGTERM->SIGKILL grace period.
const killGrace = 2 * time.Second

const defaultTimeout = 180 * time.Second

// Manager owns every background job for the process lifetime.
type Manager struct {
	mu          sync.RWMutex
	jobs        map[string]*job
	maxLogLines int
	allowlist   []string
	engine      *template.Engine
}

// NewManager constructs a job manager. allowlist is a set of doublestar
// glob patterns matched against an executable's basename; empty means
// unrestricted. The check applies to every StartCommand call on the manager,
// so provider login jobs started through a manager that has an allowlist are
// gated by it too (cmd/gateway shares one manager between POST /admin/jobs
// and the providers). Provider status and rate-limit commands run through
// cliexec directly and never reach this check.
func NewManager(maxLogLines int, allowlist []string) *Manager {
	return &Manager{
		jobs:        make(map[string]*job),
		maxLogLines: maxLogLines,
		allowlist:   allowlist,
		engine:      template.New(),
	}
}

// StartCommand resolves spec's template placeholders against vars, spawns
// it non-blocking, and returns immediately with a running job's id. The
// child's stdout/stderr stream into the job's log ring buffer as it runs.
func (m *Manager) StartCommand(tag string, spec domain.CommandSpec, vars template.Vars) (Record, error) {
	if len(m.allowlist) > 0 {
		base := filepath.Base(spec.Executable)
		allowed := false
		for _, pattern := range m.allowlist {
			if ok, _ := doublestar.Match(pattern, base); ok {
				allowed = true
				break
			}
		}
		if !allowed {
			return Record{}, fmt.Errorf("executable %q is not in the allow-list", base)
		}
	}

	resolved := domain.CommandSpec{
		Executable: m.engine.Apply(spec.Executable, vars),
		Args:       m.engine.ApplySlice(spec.Args, vars),
		Env:        m.engine.ApplyMap(spec.Env, vars),
		Cwd:        m.engine.Apply(spec.Cwd, vars),
		TimeoutMs:  spec.TimeoutMs,
	}

	id := uuid.NewString()
	j := newJob(id, tag, resolved, m.maxLogLines)

	m.mu.Lock()
	m.jobs[id] = j
	m.mu.Unlock()

	go m.run(j, resolved)

	return j.snapshot(), nil
}

func (m *Manager) run(j *job, spec domain.CommandSpec) {
	timeout := time.Duration(spec.TimeoutMs) * time.Millisecond
	if spec.TimeoutMs <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Executable, spec.Args...)
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	if spec.Cwd != "" {
		cmd.Dir = spec.Cwd
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		j.appendLog("[system] command timed out")
		return signalGroup(cmd, syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		j.appendLog("[system] failed to open stdout: " + err.Error())
		j.finish(StatusFailed, nil)
		return
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		j.appendLog("[system] failed to open stderr: " + err.Error())
		j.finish(StatusFailed, nil)
		return
	}

	if err := cmd.Start(); err != nil {
		j.appendLog("[system] failed to start: " + err.Error())
		j.finish(StatusFailed, nil)
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(stdoutPipe, "stdout", j, &wg)
	go streamLines(stderrPipe, "stderr", j, &wg)
	wg.Wait()

	waitErr := cmd.Wait()

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		j.finish(StatusTimedOut, nil)
	case waitErr == nil:
		zero := 0
		j.finish(StatusCompleted, &zero)
	default:
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			j.finish(StatusFailed, &code)
		} else {
			j.appendLog("[system] " + waitErr.Error())
			j.finish(StatusFailed, nil)
		}
	}
}

func streamLines(r io.Reader, label string, j *job, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		j.appendLog("[" + label + "] " + scanner.Text())
	}
}

// GetJob returns a snapshot of one job, or ok=false if id is unknown.
func (m *Manager) GetJob(id string) (Record, bool) {
	m.mu.RLock()
	j, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return Record{}, false
	}
	return j.snapshot(), true
}

// ListJobs returns up to limit job snapshots, newest first. limit<=0 means
// unbounded.
func (m *Manager) ListJobs(limit int) []Record {
	m.mu.RLock()
	records := make([]Record, 0, len(m.jobs))
	for _, j := range m.jobs {
		records = append(records, j.snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, k int) bool {
		return records[i].StartedAt.After(records[k].StartedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

func mergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overlay))
	skip := make(map[string]struct{}, len(overlay))
	for k := range overlay {
		skip[k] = struct{}{}
	}
	for _, kv := range base {
		name := kv
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			name = kv[:idx]
		}
		if _, shadowed := skip[name]; shadowed {
			continue
		}
		out = append(out, kv)
	}
	for k, v := range overlay {
		out = append(out, k+"="+v)
	}
	return out
}

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil {
		return cmd.Process.Signal(sig)
	}
	return nil
}
