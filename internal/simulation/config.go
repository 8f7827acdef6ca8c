// Package simulation drives a running ranking server with a simulated rater
// and measures how well the resulting standings recover its preferences.
package simulation

import (
	"fmt"
	"time"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultRounds  = 200
	DefaultWorkers = 1
	DefaultTimeout = 10 * time.Second
	DefaultTopN    = 10
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL string        // Base URL of the service
	Rounds  int           // Number of pairs to judge
	Workers int           // Number of concurrent raters sharing one preference
	Noise   float64       // Probability that a judgment is flipped
	Replay  float64       // Probability that a submission is sent twice with the same request_id
	Seed    int64         // Seeds the hidden ordering and noise; 0 picks one from the clock
	Timeout time.Duration // HTTP request timeout
	TopN    int           // Rows of the final standings to report
	Output  string        // Optional file receiving the JSON report
	Verbose bool          // Log every judgment
}

// withDefaults fills zero values and validates ranges.
func (c Config) withDefaults() (Config, error) {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Rounds == 0 {
		c.Rounds = DefaultRounds
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.TopN == 0 {
		c.TopN = DefaultTopN
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	switch {
	case c.Rounds < 0:
		return c, fmt.Errorf("%w: rounds must be positive", ErrInvalidConfig)
	case c.Workers < 0:
		return c, fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Noise < 0 || c.Noise > 1:
		return c, fmt.Errorf("%w: noise must be within [0, 1]", ErrInvalidConfig)
	case c.Replay < 0 || c.Replay > 1:
		return c, fmt.Errorf("%w: replay must be within [0, 1]", ErrInvalidConfig)
	}
	return c, nil
}
