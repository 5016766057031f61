// Package identity resolves the authenticated participant behind a
// connection exactly once, at upgrade time. Queue and session operations
// receive the resolved identity instead of re-decoding tokens at each
// call site.
package identity

import (
	"errors"
	"os"

	"saude-ja/triagem/triage-queue-server/pkg/infra"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"
)

type Role string

const (
	RolePaciente Role = "paciente"
	RoleMedico   Role = "medico"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrUnauthorized = errors.New("token rejected by main server")
	ErrUnknownRole  = errors.New("unknown role")
)

// Identity is the once-per-connection trust boundary.
type Identity struct {
	Id   string
	Nome string
	Role Role
}

type Resolver struct {
	httpClient *req.Client
	logger     *zap.SugaredLogger
}

func ProvideResolver(httpClient *req.Client, loggerFactory *infra.LoggerFactory) *Resolver {
	return &Resolver{
		httpClient: httpClient,
		logger:     loggerFactory.Create("Resolver").Sugar(),
	}
}

// Resolve introspects the token against the main server, which owns
// authentication and token issuance.
func (r *Resolver) Resolve(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	introspection := &struct {
		Data struct {
			Sub      string `json:"sub"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"data"`
	}{}

	resp, err := r.httpClient.R().
		SetHeader("Authorization", "Bearer "+token).
		SetResult(introspection).
		Get(os.Getenv("MAIN_SERVER_HOST") + "/api/v1/auth/introspect")

	if err != nil {
		r.logger.Errorf("introspection request failed %v", err)
		return nil, err
	}

	if resp.IsError() {
		r.logger.Warnf("introspection rejected with status[%v]", resp.Status)
		return nil, ErrUnauthorized
	}

	role := Role(introspection.Data.Role)
	if role != RolePaciente && role != RoleMedico {
		r.logger.Warnf("introspection returned unknown role[%v]", introspection.Data.Role)
		return nil, ErrUnknownRole
	}

	return &Identity{
		Id:   introspection.Data.Sub,
		Nome: introspection.Data.Username,
		Role: role,
	}, nil
}
