package resilience

import "time"

// Defaults for the breaker in front of the template and roster store. Five
// straight failures skip the store for fifteen seconds, then two trial
// calls decide whether it is back.
const (
	DefaultFailureThreshold = 5
	DefaultOpenTimeout      = 15 * time.Second
	DefaultHalfOpenMaxReq   = 2
)

type CircuitBreakerConfig struct {
	FailureThreshold int
	OpenTimeout      time.Duration
	HalfOpenMaxReq   int
}

func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: DefaultFailureThreshold,
		OpenTimeout:      DefaultOpenTimeout,
		HalfOpenMaxReq:   DefaultHalfOpenMaxReq,
	}
}

// Normalized replaces unset or invalid fields with the defaults.
func (c CircuitBreakerConfig) Normalized() CircuitBreakerConfig {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	if c.HalfOpenMaxReq < 1 {
		c.HalfOpenMaxReq = DefaultHalfOpenMaxReq
	}
	return c
}

// LogArgs renders the config as logger key/value pairs.
func (c CircuitBreakerConfig) LogArgs() []any {
	return []any{
		"breaker_failure_threshold", c.FailureThreshold,
		"breaker_open_timeout", c.OpenTimeout.String(),
		"breaker_half_open_max_req", c.HalfOpenMaxReq,
	}
}
