// Package config loads the provider-binding YAML (spec's bit-exact schema)
// via koanf, applies a ${VAR}/${VAR:-default} environment overlay before
// decode, and converts the result into domain.ProviderBinding values plus
// the ambient server/auth/rate-limit/job-manager settings.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/relaywell/cligateway/internal/core/domain"
)

const defaultTimeoutMs = 180000

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Port int
}

// AuthSettings configures the admin/API-key middleware.
type AuthSettings struct {
	APIKeyHashes []string
}

// RateLimitSettings configures the token-bucket limiter.
type RateLimitSettings struct {
	RequestsPerSecond float64
	Burst             int
}

// JobManagerSettings configures the background job manager.
type JobManagerSettings struct {
	MaxLogLines         int
	ExecutableAllowlist []string
}

// RuntimeConfig is the fully parsed, defaulted, field-validated configuration.
// It is not yet a validated registry: duplicate provider/model ids and
// dangling fallbacks are the registry builder's concern, not this package's.
type RuntimeConfig struct {
	Server     ServerSettings
	Auth       AuthSettings
	RateLimit  RateLimitSettings
	JobManager JobManagerSettings
	Providers  []domain.ProviderBinding
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// substituteEnvVars expands ${VAR} and ${VAR:-default} in raw YAML text
// before it reaches the parser, so the schema koanf decodes into is never
// touched by the overlay.
func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name, def := groups[1], groups[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	})
}

// Load reads and validates the provider-binding config at path. A missing
// file is not an error: it yields a RuntimeConfig with ambient defaults and
// no providers, matching the pack's env-only bootstrap mode.
func Load(path string) (*RuntimeConfig, error) {
	k := koanf.New(".")

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		raw = nil
	}

	if raw != nil {
		expanded := substituteEnvVars(string(raw))
		if err := k.Load(rawbytes.Provider([]byte(expanded)), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("CLIGATEWAY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "CLIGATEWAY_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overlay: %w", err)
	}

	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("rate_limit.requests_per_second") {
		k.Set("rate_limit.requests_per_second", 5.0)
	}
	if !k.Exists("rate_limit.burst") {
		k.Set("rate_limit.burst", 10)
	}
	if !k.Exists("job_manager.max_log_lines") {
		k.Set("job_manager.max_log_lines", 300)
	}

	var fc fileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return toRuntimeConfig(&fc)
}

func toRuntimeConfig(fc *fileConfig) (*RuntimeConfig, error) {
	rc := &RuntimeConfig{
		Server: ServerSettings{Port: fc.Server.Port},
		Auth:   AuthSettings{APIKeyHashes: fc.Auth.APIKeyHashes},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: fc.RateLimit.RequestsPerSecond,
			Burst:             fc.RateLimit.Burst,
		},
		JobManager: JobManagerSettings{
			MaxLogLines:         fc.JobManager.MaxLogLines,
			ExecutableAllowlist: fc.JobManager.ExecutableAllowlist,
		},
	}

	bindings := make([]domain.ProviderBinding, 0, len(fc.Providers))
	for _, p := range fc.Providers {
		binding, err := convertProvider(p)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding)
	}
	rc.Providers = bindings
	return rc, nil
}

func convertProvider(p providerSection) (domain.ProviderBinding, error) {
	if p.ID == "" {
		return domain.ProviderBinding{}, fmt.Errorf("provider config missing id")
	}
	if p.Type != "" && p.Type != "cli" {
		return domain.ProviderBinding{}, fmt.Errorf("provider %q: unsupported type %q (only \"cli\" is supported)", p.ID, p.Type)
	}

	models := make([]domain.ModelConfig, 0, len(p.Models))
	for _, m := range p.Models {
		if m.ID == "" {
			return domain.ProviderBinding{}, fmt.Errorf("provider %q: model config missing id", p.ID)
		}
		providerModel := m.ProviderModel
		if providerModel == "" {
			providerModel = m.ID
		}
		models = append(models, domain.ModelConfig{
			ID:             m.ID,
			ProviderModel:  providerModel,
			Description:    m.Description,
			FallbackModels: append([]string(nil), m.FallbackModels...),
		})
	}

	respCmd, err := convertResponseCommand(p.ID, p.ResponseCommand)
	if err != nil {
		return domain.ProviderBinding{}, err
	}

	binding := domain.ProviderBinding{
		ID:              p.ID,
		Description:     p.Description,
		Models:          models,
		ResponseCommand: respCmd,
	}

	if p.Auth != nil {
		if p.Auth.LoginCommand != nil {
			cmd := convertCommandSpec(*p.Auth.LoginCommand)
			binding.LoginCommand = &cmd
		}
		if p.Auth.StatusCommand != nil {
			cmd := convertCommandSpec(*p.Auth.StatusCommand)
			binding.StatusCommand = &cmd
		}
		if p.Auth.RateLimitCommand != nil {
			cmd := convertCommandSpec(*p.Auth.RateLimitCommand)
			binding.RateLimitCommand = &cmd
		}
	}

	return binding, nil
}

func convertCommandSpec(c commandSpecSection) domain.CommandSpec {
	timeout := c.TimeoutMs
	if timeout <= 0 {
		timeout = defaultTimeoutMs
	}
	return domain.CommandSpec{
		Executable: c.Executable,
		Args:       append([]string(nil), c.Args...),
		Env:        copyStringMap(c.Env),
		Cwd:        c.Cwd,
		TimeoutMs:  timeout,
	}
}

func convertResponseCommand(providerID string, c commandContractSection) (domain.ResponseCommand, error) {
	if c.Executable == "" {
		return domain.ResponseCommand{}, fmt.Errorf("provider %q: responseCommand.executable is required", providerID)
	}

	input := domain.InputMode(c.Input)
	if input == "" {
		input = domain.InputPromptStdin
	}
	if input != domain.InputPromptStdin && input != domain.InputRequestJSONStdin {
		return domain.ResponseCommand{}, fmt.Errorf("provider %q: invalid responseCommand.input %q", providerID, c.Input)
	}

	output := domain.OutputMode(c.Output)
	switch output {
	case domain.OutputText, domain.OutputTextPlain, domain.OutputTextContractFinalLine, domain.OutputJSONContract:
	default:
		return domain.ResponseCommand{}, fmt.Errorf("provider %q: invalid responseCommand.output %q", providerID, c.Output)
	}

	timeout := c.TimeoutMs
	if timeout <= 0 {
		timeout = defaultTimeoutMs
	}

	return domain.ResponseCommand{
		CommandSpec: domain.CommandSpec{
			Executable: c.Executable,
			Args:       append([]string(nil), c.Args...),
			Env:        copyStringMap(c.Env),
			Cwd:        c.Cwd,
			TimeoutMs:  timeout,
		},
		Input:  input,
		Output: output,
	}, nil
}

func copyStringMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
