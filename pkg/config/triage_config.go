package config

import (
	"context"
	"os"
	"strconv"
	"time"

	"saude-ja/triagem/triage-queue-server/pkg/infra"

	"github.com/go-redis/redis/v8"
	"github.com/imroc/req/v3"
	"go.uber.org/zap"
)

// DefaultGreetingMessage opens every chat session unless overridden.
const DefaultGreetingMessage = "Olá! Como posso ajudar você hoje?"

type TriageConfig struct {
	// If false, patients cannot enter the queue no matter what.
	IsQueueOpen bool `redis:"isQueueOpen"`

	// Number of clinicians currently on duty, from main server. Zero
	// means nobody would ever claim a ticket, so the queue is
	// effectively closed to new patients.
	OnDutyDoctors uint `redis:"onDutyDoctors"`

	// System greeting delivered when a chat session opens.
	GreetingEnabled bool   `redis:"greetingEnabled"`
	GreetingMessage string `redis:"greetingMessage"`

	redisClient *redis.Client
	httpClient  *req.Client
	logger      *zap.SugaredLogger
}

func ProvideTriageConfig(redisClient *redis.Client, httpClient *req.Client, loggerFactory *infra.LoggerFactory) *TriageConfig {
	return &TriageConfig{
		IsQueueOpen:     true,
		GreetingEnabled: true,
		redisClient:     redisClient,
		httpClient:      httpClient,
		logger:          loggerFactory.Create("TriageConfig").Sugar(),
	}
}

const (
	// Update config with this interval.
	cfgUpdateInterval = 5 * time.Second

	// TriageConfig redis key.
	cfgRedisKey = "triagem:config"
)

func (c *TriageConfig) AcceptingPatients() bool {
	return c.IsQueueOpen && c.OnDutyDoctors > 0
}

// Greeting returns the session-open message, or false when disabled.
func (c *TriageConfig) Greeting() (string, bool) {
	if !c.GreetingEnabled {
		return "", false
	}
	if c.GreetingMessage == "" {
		return DefaultGreetingMessage, true
	}
	return c.GreetingMessage, true
}

func (c *TriageConfig) Run() {
	ticker := time.NewTicker(cfgUpdateInterval)
	for ; true; <-ticker.C {
		c.logger.Debugf("updating config")

		if err := c.redisClient.HGetAll(context.TODO(), cfgRedisKey).Scan(c); err != nil {
			c.logger.Errorf("err reading config from redis %v", err)
			continue
		}

		onDutyResult := &struct {
			Data struct {
				OnDutyDoctors string `json:"onDutyDoctors"`
			} `json:"data"`
		}{}

		resp, err := c.httpClient.R().
			SetHeader("jtoken", os.Getenv("MAIN_SERVER_API_KEY")).
			SetResult(onDutyResult).
			Get(os.Getenv("MAIN_SERVER_HOST") + "/triagem/on-duty")

		if err != nil {
			c.logger.Errorf("request failed %v", err)
			continue
		}

		if resp.IsError() {
			c.logger.Errorf("request failed with status[%v]", resp.Status)
			continue
		}

		newOnDuty, err := strconv.Atoi(onDutyResult.Data.OnDutyDoctors)
		if err != nil {
			c.logger.Errorf("cannot parse on-duty doctors[%v] to int %v", onDutyResult.Data.OnDutyDoctors, err)
			continue
		}

		if newOnDuty == int(c.OnDutyDoctors) {
			continue
		}

		c.OnDutyDoctors = uint(newOnDuty)

		if _, err := c.redisClient.HSet(context.TODO(), cfgRedisKey,
			"onDutyDoctors", c.OnDutyDoctors,
		).Result(); err != nil {
			c.logger.Errorf("err setting onDutyDoctors to redis %v", err)
			continue
		}
		c.logger.Infof("updated config[%+v]", c)
	}
}
