package config

import (
	"fmt"
	"time"
)

const (
	IdleActivity = "activity"
	IdleDelay    = "delay"
)

// SchedulerConfig controls idle detection and the optional load timeout.
type SchedulerConfig struct {
	// Idle selects the idle signal: "activity" waits for interactive loads
	// to finish, "delay" uses the fixed fallback delay only.
	Idle            string `json:"idle"`
	FallbackDelayMS int    `json:"fallback_delay_ms"`
	MaxIdleWaitMS   int    `json:"max_idle_wait_ms"`
	// LoadTimeoutMS bounds every loader call. Zero disables the timeout.
	LoadTimeoutMS int `json:"load_timeout_ms"`
}

func (c *SchedulerConfig) SetDefaults() {
	if c.Idle == "" {
		c.Idle = IdleActivity
	}
	if c.FallbackDelayMS <= 0 {
		c.FallbackDelayMS = 50
	}
	if c.MaxIdleWaitMS <= 0 {
		c.MaxIdleWaitMS = 2000
	}
}

func (c SchedulerConfig) Validate() error {
	if c.Idle != IdleActivity && c.Idle != IdleDelay {
		return fmt.Errorf("unknown idle mode %q", c.Idle)
	}
	if c.LoadTimeoutMS < 0 {
		return fmt.Errorf("load_timeout_ms must not be negative")
	}
	return nil
}

func (c SchedulerConfig) FallbackDelay() time.Duration {
	return time.Duration(c.FallbackDelayMS) * time.Millisecond
}

func (c SchedulerConfig) MaxIdleWait() time.Duration {
	return time.Duration(c.MaxIdleWaitMS) * time.Millisecond
}

func (c SchedulerConfig) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutMS) * time.Millisecond
}

// HTTPConfig configures the control API. An empty Address disables it.
type HTTPConfig struct {
	Address    string `json:"address"`
	Token      string `json:"token"`
	LoadWaitMS int    `json:"load_wait_ms"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.LoadWaitMS <= 0 {
		c.LoadWaitMS = 10000
	}
}

func (c HTTPConfig) LoadWait() time.Duration {
	return time.Duration(c.LoadWaitMS) * time.Millisecond
}
