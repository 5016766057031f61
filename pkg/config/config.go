package config

import "flag"

type Config struct {
	NotifyStatsIntervalSeconds *int
	AverageWaitWindowSize      *int
	InitAvgWaitSeconds         *int

	PingIntervalSeconds *int
	SendBufferSize      *int
}

var CFG = &Config{
	NotifyStatsIntervalSeconds: flag.Int("notify-stats-interval-seconds", 5, "Interval to broadcast queue stats to connected clinicians."),
	AverageWaitWindowSize:      flag.Int("average-wait-window-size", 50, "The size of sliding window for calculating average wait time of a ticket."),
	InitAvgWaitSeconds:         flag.Int("init-avg-wait-seconds", 180, "Initial default value of wait duration before any ticket has been claimed."),
	PingIntervalSeconds:        flag.Int("ping-interval-seconds", 30, "Send pings to websocket peer with this interval."),
	SendBufferSize:             flag.Int("send-buffer-size", 64, "Outbound message buffer per websocket connection. A connection that falls this far behind is closed."),
}
