package agent

import (
	"net/http"
	"time"

	"github.com/profefe/jsprof/pkg/log"
	"github.com/profefe/jsprof/pkg/retry"
)

type Option func(c *Client)

func WithLabels(args ...string) Option {
	if len(args)%2 != 0 {
		panic("agent.WithLabels: uneven number of arguments, expected key-value pairs")
	}
	return func(c *Client) {
		for i := 0; i+1 < len(args); i += 2 {
			c.labels[args[i]] = args[i+1]
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.rawClient = hc
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetry sets how failed uploads are retried. Zero attempts means no limit.
func WithRetry(minDelay, maxDelay time.Duration, attempts int) Option {
	return func(c *Client) {
		c.retry = retry.New(minDelay, maxDelay, attempts)
	}
}
