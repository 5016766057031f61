package main

import (
	"sync"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/config"
	"saude-ja/triagem/triage-queue-server/pkg/identity"
	"saude-ja/triagem/triage-queue-server/pkg/msg"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Client is a middleman between one websocket connection and the hub.
// Exactly one logical connection exists per participant; registering a
// new one for the same identity closes the previous.
type Client struct {
	// Connection id for logging, not participant identity.
	connId string

	identity *identity.Identity

	conn *websocket.Conn

	// Buffered channel of outbound messages. Delivery order within the
	// channel is the order messages were enqueued.
	sendWsMessage chan *msg.WsMessage

	// Carries the close control payload to the write pump.
	close     chan []byte
	closeOnce sync.Once

	hub    *Hub
	logger *zap.SugaredLogger
}

func NewClient(connId string, id *identity.Identity, conn *websocket.Conn, hub *Hub, logger *zap.SugaredLogger) *Client {
	return &Client{
		connId:        connId,
		identity:      id,
		conn:          conn,
		sendWsMessage: make(chan *msg.WsMessage, *config.CFG.SendBufferSize),
		close:         make(chan []byte, 1),
		hub:           hub,
		logger:        logger,
	}
}

func (c *Client) Run() {
	c.hub.register <- c
	go c.writePump()
	c.readPump()
}

// Send enqueues without blocking. False means the buffer is full and the
// hub should assume the connection is dead or stuck.
func (c *Client) Send(wsMessage *msg.WsMessage) bool {
	select {
	case c.sendWsMessage <- wsMessage:
		return true
	default:
		return false
	}
}

// TryClose notifies the write pump to close the connection. Safe to call
// more than once.
func (c *Client) TryClose() {
	c.closeOnce.Do(func() {
		c.close <- websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	pingPeriod := time.Duration(*config.CFG.PingIntervalSeconds) * time.Second
	pongWait := pingPeriod * 5 / 2

	c.conn.SetReadLimit(maxMessageSize)

	// Heartbeat. Close connection if client does not respond to ping for
	// too long.
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		wsMessage := &msg.WsMessage{}
		if err := c.conn.ReadJSON(wsMessage); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Errorf("connId[%v] read err: %v", c.connId, err)
			} else {
				c.logger.Infof("connId[%v] read closing: %v", c.connId, err)
			}
			return
		}

		c.hub.wsRequest <- &ClientRequest{client: c, wsMessage: wsMessage}
	}
}

func (c *Client) writePump() {
	pingPeriod := time.Duration(*config.CFG.PingIntervalSeconds) * time.Second
	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		pingTicker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case wsMessage, ok := <-c.sendWsMessage:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(wsMessage); err != nil {
				c.logger.Errorf("connId[%v] WriteJSON err: %v", c.connId, err)
				return
			}

		case payload := <-c.close:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, payload)
			return

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Errorf("connId[%v] ping err: %v", c.connId, err)
				return
			}
		}
	}
}
