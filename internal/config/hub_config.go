package config

import "time"

type HubConfig interface {
	GetBroadcastDelay() time.Duration
	GetHubWriteTimeout() time.Duration
	GetHubQueueSize() int
	GetHubMessageRate() (perSecond float64, burst int)
}

type Hub struct {
	BroadcastDelay time.Duration `env:"BROADCAST_DELAY" default:"500ms"`
	WriteTimeout   time.Duration `env:"HUB_WRITE_TIMEOUT" default:"5s"`
	QueueSize      int           `env:"HUB_QUEUE_SIZE" default:"1024"`
	MessageRate    float64       `env:"HUB_MESSAGE_RATE" default:"10"`
	MessageBurst   int           `env:"HUB_MESSAGE_BURST" default:"20"`
}

var _ HubConfig = Hub{}

// GetBroadcastDelay may legitimately be zero.
func (h Hub) GetBroadcastDelay() time.Duration {
	if h.BroadcastDelay < 0 {
		return 0
	}
	return h.BroadcastDelay
}

func (h Hub) GetHubWriteTimeout() time.Duration {
	if h.WriteTimeout <= 0 {
		return 5 * time.Second
	}
	return h.WriteTimeout
}

func (h Hub) GetHubQueueSize() int {
	if h.QueueSize <= 0 {
		return 1024
	}
	return h.QueueSize
}

func (h Hub) GetHubMessageRate() (float64, int) {
	burst := h.MessageBurst
	if burst <= 0 {
		burst = 1
	}
	return h.MessageRate, burst
}
