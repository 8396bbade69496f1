package server

import (
	"errors"
	"net/http"

	"github.com/relaywell/cligateway/internal/core/domain"
	"github.com/relaywell/cligateway/internal/dispatcher"
)

// writeDispatchError maps a dispatcher.RunModel error to an HTTP status and
// an OpenAI-shaped error body, unwrapping a *dispatcher.ChainError to
// classify by its underlying cause.
func writeDispatchError(w http.ResponseWriter, err error) {
	cause := err
	var chainErr *dispatcher.ChainError
	if errors.As(err, &chainErr) {
		cause = chainErr.Cause
	}

	status, errType := classifyError(cause)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(marshalError(err.Error(), errType, ""))
}

func classifyError(err error) (int, string) {
	var invalidModel *domain.InvalidModelError
	var configErr *domain.ConfigError
	var timeoutErr *domain.TimeoutError
	var exitErr *domain.ProviderExitError
	var spawnErr *domain.SpawnError
	var parseErr *domain.ParseError

	switch {
	case errors.As(err, &invalidModel):
		return http.StatusNotFound, "invalid_request_error"
	case errors.As(err, &configErr):
		return http.StatusInternalServerError, "config_error"
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout, "timeout_error"
	case errors.As(err, &exitErr):
		return http.StatusBadGateway, "provider_error"
	case errors.As(err, &spawnErr):
		return http.StatusInternalServerError, "provider_error"
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, "provider_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
