// Package dispatcher walks a model's fallback chain per spec §4.5,
// recording every attempt and fallback transition in the health tracker,
// stopping on success, a cycle, or a dangling fallback.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/relaywell/cligateway/internal/core/domain"
	"github.com/relaywell/cligateway/internal/health"
	"github.com/relaywell/cligateway/internal/registry"
)

// Attempt is one entry in a runModel chain walk, kept for callers that need
// to inspect (or log) the path taken beyond what the tracker records.
type Attempt struct {
	ModelID          string
	RequestedModelID string
	ProviderID       string
	ProviderModel    string
	AttemptIndex     int
}

// ChainError wraps the last error from a fallback chain that made more than
// one attempt, per spec §4.5's "wrap(...)" step.
type ChainError struct {
	Chain []string
	Cause error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("model execution failed after fallback chain: %s. Last error: %v",
		strings.Join(e.Chain, " -> "), e.Cause)
}

func (e *ChainError) Unwrap() error { return e.Cause }

// Dispatcher owns the registry and tracker together so a request never
// needs to pass both around separately.
type Dispatcher struct {
	registry *registry.Registry
	tracker  *health.Tracker
}

// New constructs a Dispatcher over an already-built registry and tracker.
func New(reg *registry.Registry, tracker *health.Tracker) *Dispatcher {
	return &Dispatcher{registry: reg, tracker: tracker}
}

// RunModel walks modelID's fallback chain: runs the model, and on failure
// follows the first not-yet-visited fallback, repeating until success, the
// chain dries up, or a cycle is detected. req's Model/ProviderModel fields
// are overwritten per attempt; callers pass everything else (messages,
// tools, requestId, metadata).
func (d *Dispatcher) RunModel(ctx context.Context, modelID string, req domain.UnifiedRequest) (domain.ProviderResult, []Attempt, error) {
	if _, ok := d.registry.GetModel(modelID); !ok {
		return domain.ProviderResult{}, nil, &domain.InvalidModelError{Model: modelID}
	}

	var attempted []string
	var attempts []Attempt
	visited := make(map[string]struct{})
	current := modelID
	var lastErr error

	for current != "" {
		if _, seen := visited[current]; seen {
			break
		}
		visited[current] = struct{}{}
		attempted = append(attempted, current)
		attemptIndex := len(attempted) - 1

		binding, ok := d.registry.GetModel(current)
		if !ok {
			d.tracker.RecordAttempt(current)
			lastErr = &domain.ConfigError{Message: fmt.Sprintf("fallback model not found: %s", current)}
			d.tracker.RecordFailure(current, "unknown", lastErr, 0)
			attempts = append(attempts, Attempt{ModelID: current, RequestedModelID: modelID, ProviderID: "unknown", AttemptIndex: attemptIndex})
			break
		}

		prov, _ := d.registry.GetProvider(binding.ProviderID)
		d.tracker.RecordAttempt(current)
		attempts = append(attempts, Attempt{
			ModelID:          current,
			RequestedModelID: modelID,
			ProviderID:       binding.ProviderID,
			ProviderModel:    binding.ProviderModel,
			AttemptIndex:     attemptIndex,
		})

		start := time.Now()
		result, err := prov.Run(ctx, req.WithModel(current, binding.ProviderModel))
		duration := time.Since(start)
		if err == nil {
			d.tracker.RecordSuccess(current, duration)
			return result, attempts, nil
		}

		lastErr = err
		d.tracker.RecordFailure(current, binding.ProviderID, err, duration)

		next := firstFallbackNotVisited(binding.FallbackModels, visited)
		if next == "" {
			break
		}
		d.tracker.RecordFallback(current, next)
		current = next
	}

	if len(attempted) <= 1 {
		return domain.ProviderResult{}, attempts, lastErr
	}
	return domain.ProviderResult{}, attempts, &ChainError{Chain: attempted, Cause: lastErr}
}

func firstFallbackNotVisited(fallbacks []string, visited map[string]struct{}) string {
	for _, f := range fallbacks {
		if _, seen := visited[f]; !seen {
			return f
		}
	}
	return ""
}
