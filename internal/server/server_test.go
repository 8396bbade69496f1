package server

import (
	"io"
	"log/slog"
	"testing"

	"github.com/relaywell/cligateway/internal/core/domain"
	"github.com/relaywell/cligateway/internal/dispatcher"
	"github.com/relaywell/cligateway/internal/health"
	"github.com/relaywell/cligateway/internal/jobs"
	"github.com/relaywell/cligateway/internal/registry"
	"github.com/relaywell/cligateway/internal/template"
)

func shCommand(script string) domain.CommandSpec {
	return domain.CommandSpec{Executable: "/bin/sh", Args: []string{"-c", script}, TimeoutMs: 5000}
}

// testHandler builds a real Handler wired against an in-memory registry
// running actual /bin/sh child processes, the same style the dispatcher's
// own tests use, rather than a mocked dispatcher.
func testHandler(t *testing.T, bindings []domain.ProviderBinding) *Handler {
	t.Helper()
	jm := jobs.NewManager(100, nil)
	reg, err := registry.Build(bindings, template.New(), jm)
	if err != nil {
		t.Fatalf("registry.Build: %v", err)
	}

	var modelIDs []string
	for _, m := range reg.ListModels() {
		modelIDs = append(modelIDs, m.ModelID)
	}
	tracker := health.NewTracker(modelIDs)
	disp := dispatcher.New(reg, tracker)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(reg, disp, tracker, jm, nil, logger)
}

func oneModelBinding(script string) []domain.ProviderBinding {
	return []domain.ProviderBinding{
		{
			ID:     "p1",
			Models: []domain.ModelConfig{{ID: "m1", ProviderModel: "m1"}},
			ResponseCommand: domain.ResponseCommand{
				CommandSpec: shCommand(script),
				Input:       domain.InputPromptStdin,
				Output:      domain.OutputText,
			},
		},
	}
}
