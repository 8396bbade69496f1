// Package registry builds the immutable provider/model routing table from
// parsed configuration. Grounded on the teacher's internal/tenant.Registry
// (LoadTenants: validate + index each config entry into a map, once, at
// startup) and internal/provider.Registry's map-of-providers shape,
// generalized from tenants/HTTP providers to CLI provider bindings.
package registry

import (
	"fmt"
	"sort"

	"github.com/relaywell/cligateway/internal/core/domain"
	"github.com/relaywell/cligateway/internal/jobs"
	"github.com/relaywell/cligateway/internal/provider"
	"github.com/relaywell/cligateway/internal/template"
)

// Registry is the immutable, validated result of a config load: every
// provider instantiated, every model indexed to its owning provider.
type Registry struct {
	providers map[string]*provider.Provider
	models    map[string]domain.ModelBinding
}

// Build validates bindings and constructs a Registry. Duplicate provider or
// model ids, or an empty binding list, fail with *domain.ConfigError.
func Build(bindings []domain.ProviderBinding, engine *template.Engine, jobManager *jobs.Manager) (*Registry, error) {
	if len(bindings) == 0 {
		return nil, &domain.ConfigError{Message: "provider registry: no providers configured"}
	}

	providers := make(map[string]*provider.Provider, len(bindings))
	models := make(map[string]domain.ModelBinding)

	for _, binding := range bindings {
		if _, dup := providers[binding.ID]; dup {
			return nil, &domain.ConfigError{Message: fmt.Sprintf("duplicate provider id: %s", binding.ID)}
		}

		p := provider.New(binding, engine, jobManager)
		providers[binding.ID] = p

		for _, m := range binding.Models {
			if _, dup := models[m.ID]; dup {
				return nil, &domain.ConfigError{Message: fmt.Sprintf("duplicate model id: %s", m.ID)}
			}
			models[m.ID] = domain.ModelBinding{
				ModelID:        m.ID,
				ProviderID:     binding.ID,
				ProviderModel:  m.ProviderModel,
				Description:    m.Description,
				FallbackModels: append([]string(nil), m.FallbackModels...),
			}
		}
	}

	return &Registry{providers: providers, models: models}, nil
}

// GetProvider returns the provider instance for an id, if registered.
func (r *Registry) GetProvider(id string) (*provider.Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// GetModel returns a model's routing binding, if registered.
func (r *Registry) GetModel(modelID string) (domain.ModelBinding, bool) {
	m, ok := r.models[modelID]
	return m, ok
}

// ProviderForModel resolves a model id straight to its owning provider.
func (r *Registry) ProviderForModel(modelID string) (*provider.Provider, domain.ModelBinding, bool) {
	m, ok := r.models[modelID]
	if !ok {
		return nil, domain.ModelBinding{}, false
	}
	p, ok := r.providers[m.ProviderID]
	if !ok {
		return nil, domain.ModelBinding{}, false
	}
	return p, m, true
}

// ListModels returns every registered model binding, sorted by model id.
func (r *Registry) ListModels() []domain.ModelBinding {
	out := make([]domain.ModelBinding, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelID < out[j].ModelID })
	return out
}

// ListProviders returns every registered provider binding, sorted by
// provider id.
func (r *Registry) ListProviders() []domain.ProviderBinding {
	out := make([]domain.ProviderBinding, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Binding())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
