//go:build wireinject
// +build wireinject

package main

import (
	"saude-ja/triagem/triage-queue-server/pkg/config"
	"saude-ja/triagem/triage-queue-server/pkg/identity"
	"saude-ja/triagem/triage-queue-server/pkg/infra"
	"saude-ja/triagem/triage-queue-server/pkg/queue"
	"saude-ja/triagem/triage-queue-server/pkg/session"

	"github.com/google/wire"
)

func Setup() (*Server, error) {
	wire.Build(wire.NewSet(
		ProvideServer,
		ProvideApplication,
		ProvideHub,
		queue.ProvideCoordinator,
		queue.ProvideStats,
		session.ProvideRouter,
		session.ProvideChannel,
		identity.ProvideResolver,
		config.ProvideTriageConfig,
		infra.ProvideLoggerFactory,
		infra.ProvideRedisClient,
		infra.ProvideHTTPClient,
	))
	return nil, nil
}
