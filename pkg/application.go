package main

import (
	"saude-ja/triagem/triage-queue-server/pkg/config"
	"saude-ja/triagem/triage-queue-server/pkg/identity"
	"saude-ja/triagem/triage-queue-server/pkg/infra"
	"saude-ja/triagem/triage-queue-server/pkg/msg"
	"saude-ja/triagem/triage-queue-server/pkg/queue"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Application struct {
	config      *config.TriageConfig
	hub         *Hub
	coordinator *queue.Coordinator
	resolver    *identity.Resolver
	wsUpgrader  *websocket.Upgrader

	clientLogger *zap.SugaredLogger
	logger       *zap.SugaredLogger
}

func ProvideApplication(triageConfig *config.TriageConfig, hub *Hub, coordinator *queue.Coordinator, resolver *identity.Resolver, loggerFactory *infra.LoggerFactory) *Application {
	return &Application{
		config:       triageConfig,
		hub:          hub,
		coordinator:  coordinator,
		resolver:     resolver,
		wsUpgrader:   &websocket.Upgrader{},
		clientLogger: loggerFactory.Create("Client").Sugar(),
		logger:       loggerFactory.Create("Application").Sugar(),
	}
}

func (a *Application) Run() {
	go a.config.Run()
	a.hub.Run()
	a.coordinator.Run()
}

func (a *Application) HandleWs(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = c.Request().Header.Get("token")
	}

	// Identity is resolved exactly once per connection; every queue and
	// session operation downstream uses this value, not the payloads.
	id, err := a.resolver.Resolve(token)
	if err != nil {
		a.logger.Warnf("rejecting ws connection: %v", err)
		return echo.ErrUnauthorized
	}

	conn, err := a.wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	// A patient connecting while the queue is closed gets told right
	// away instead of waiting on a queue nobody serves. Clinicians
	// always get in.
	if id.Role == identity.RolePaciente && !a.config.AcceptingPatients() {
		if err := conn.WriteJSON(msg.Error(msg.ErrCodeQueueClosed, "queue is not accepting patients right now")); err != nil {
			a.logger.Errorf("cannot write json to ws conn %v", err)
		}
		if err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "queue closed")); err != nil {
			a.logger.Errorf("cannot write close message to ws conn %v", err)
		}
		conn.Close()
		return nil
	}

	client := NewClient(uuid.NewString(), id, conn, a.hub, a.clientLogger)
	go client.Run()

	return nil
}
