// Package provider wraps one upstream CLI binding: running a model
// invocation through its configured response command, and the three admin
// operations (login, auth status, rate limits) the same binding exposes.
// Grounded on the teacher's internal/provider.Registry.CreateProvider shape
// (one struct per configured binding, a uniform operation set), generalized
// from HTTP API clients to child-process invocations.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/relaywell/cligateway/internal/cliexec"
	"github.com/relaywell/cligateway/internal/core/domain"
	"github.com/relaywell/cligateway/internal/jobs"
	"github.com/relaywell/cligateway/internal/parser"
	"github.com/relaywell/cligateway/internal/template"
)

// CommandStatus is the uniform result shape for checkAuthStatus/
// checkRateLimits: a synchronous command run with no streaming and no
// ring-buffered logs.
type CommandStatus struct {
	OK       bool
	ExitCode *int
	Stdout   string
	Stderr   string
}

// Provider is one upstream CLI binding, immutable after construction.
type Provider struct {
	binding domain.ProviderBinding
	engine  *template.Engine
	jobs    *jobs.Manager
}

// New wraps a parsed ProviderBinding. engine resolves {{template}}
// placeholders; jobManager backs StartLoginJob.
func New(binding domain.ProviderBinding, engine *template.Engine, jobManager *jobs.Manager) *Provider {
	return &Provider{binding: binding, engine: engine, jobs: jobManager}
}

// ID returns the provider's configured id.
func (p *Provider) ID() string { return p.binding.ID }

// Binding returns the underlying configuration, for registry bookkeeping.
func (p *Provider) Binding() domain.ProviderBinding { return p.binding }

func (p *Provider) hasModel(modelID string) bool {
	for _, m := range p.binding.Models {
		if m.ID == modelID {
			return true
		}
	}
	return false
}

// Run executes one model invocation end to end: builds the prompt, stages
// the scoped temp directory, resolves the response command, spawns it, and
// parses its stdout per the configured output contract.
func (p *Provider) Run(ctx context.Context, req domain.UnifiedRequest) (domain.ProviderResult, error) {
	if !p.hasModel(req.Model) {
		return domain.ProviderResult{}, &domain.InvalidModelError{Model: req.Model}
	}

	rc := p.binding.ResponseCommand

	prompt := flattenMessages(req.Messages)
	if rc.Input == domain.InputPromptStdin && len(req.Tools) > 0 {
		prompt = prompt + "\n\n" + toolAdvertisementBlock(req.Tools)
	}

	dir, cleanup, err := cliexec.ScopedDir("provider-" + p.binding.ID)
	if err != nil {
		return domain.ProviderResult{}, err
	}
	defer cleanup()

	requestJSON, err := json.Marshal(buildRequestPayload(req))
	if err != nil {
		return domain.ProviderResult{}, fmt.Errorf("marshal request payload: %w", err)
	}

	promptFile, err := cliexec.WriteFile(dir, "prompt.txt", []byte(prompt))
	if err != nil {
		return domain.ProviderResult{}, err
	}
	requestFile, err := cliexec.WriteFile(dir, "request.json", requestJSON)
	if err != nil {
		return domain.ProviderResult{}, err
	}

	vars := template.Vars{
		"request_id":     req.RequestID,
		"provider_id":    p.binding.ID,
		"model":          req.Model,
		"provider_model": req.ProviderModel,
		"prompt":         prompt,
		"prompt_file":    promptFile,
		"request_file":   requestFile,
	}

	spec := cliexec.Spec{
		Executable: p.engine.Apply(rc.Executable, vars),
		Args:       p.engine.ApplySlice(rc.Args, vars),
		Env:        p.engine.ApplyMap(rc.Env, vars),
		Cwd:        p.engine.Apply(rc.Cwd, vars),
		TimeoutMs:  rc.TimeoutMs,
	}

	var stdin []byte
	if rc.Input == domain.InputRequestJSONStdin {
		stdin = requestJSON
	} else {
		stdin = []byte(prompt)
	}

	outcome, err := cliexec.Run(ctx, spec, stdin)
	if err != nil {
		var spawnErr *cliexec.SpawnError
		if errors.As(err, &spawnErr) {
			return domain.ProviderResult{}, &domain.SpawnError{Executable: spawnErr.Executable, Cause: spawnErr.Cause}
		}
		return domain.ProviderResult{}, err
	}

	if outcome.TimedOut {
		return domain.ProviderResult{}, &domain.TimeoutError{Executable: spec.Executable, TimeoutMs: spec.TimeoutMs}
	}
	if outcome.ExitCode != 0 {
		return domain.ProviderResult{}, &domain.ProviderExitError{
			ExitCode: outcome.ExitCode,
			Stderr:   outcome.Stderr,
			Stdout:   outcome.Stdout,
		}
	}

	return parser.Parse(rc.Output, outcome.Stdout, req.Tools)
}

// StartLoginJob hands the provider's loginCommand to the job manager.
func (p *Provider) StartLoginJob() (jobs.Record, error) {
	if p.binding.LoginCommand == nil {
		return jobs.Record{}, fmt.Errorf("provider %q: login command not configured", p.binding.ID)
	}
	vars := template.Vars{"provider_id": p.binding.ID}
	return p.jobs.StartCommand("login:"+p.binding.ID, *p.binding.LoginCommand, vars)
}

// CheckAuthStatus runs statusCommand synchronously.
func (p *Provider) CheckAuthStatus(ctx context.Context) CommandStatus {
	return p.runStatusLikeCommand(ctx, p.binding.StatusCommand)
}

// CheckRateLimits runs rateLimitCommand synchronously; same result shape as
// CheckAuthStatus, different command.
func (p *Provider) CheckRateLimits(ctx context.Context) CommandStatus {
	return p.runStatusLikeCommand(ctx, p.binding.RateLimitCommand)
}

func (p *Provider) runStatusLikeCommand(ctx context.Context, cmd *domain.CommandSpec) CommandStatus {
	if cmd == nil {
		return CommandStatus{OK: false, Stderr: "not configured"}
	}
	vars := template.Vars{"provider_id": p.binding.ID}
	spec := cliexec.Spec{
		Executable: p.engine.Apply(cmd.Executable, vars),
		Args:       p.engine.ApplySlice(cmd.Args, vars),
		Env:        p.engine.ApplyMap(cmd.Env, vars),
		Cwd:        p.engine.Apply(cmd.Cwd, vars),
		TimeoutMs:  cmd.TimeoutMs,
	}
	outcome, err := cliexec.Run(ctx, spec, nil)
	if err != nil {
		return CommandStatus{OK: false, Stderr: err.Error()}
	}
	code := outcome.ExitCode
	return CommandStatus{
		OK:       outcome.ExitCode == 0 && !outcome.TimedOut,
		ExitCode: &code,
		Stdout:   outcome.Stdout,
		Stderr:   outcome.Stderr,
	}
}
