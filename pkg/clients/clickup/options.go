package clickup

import (
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.clickup.com/api/v2"

// ClientOption represents an option for configuring the ClickUp client
type ClientOption func(*ClientConfig)

// ClientConfig holds the configuration for the ClickUp client
type ClientConfig struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	RetryAttempts int // applies to GET requests only
	RetryDelay    time.Duration
	HTTPClient    *http.Client

	// Breaker settings. The breaker opens after BreakerFailures consecutive
	// transient failures and half-opens after BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:         DefaultBaseURL,
		Timeout:         30 * time.Second,
		RetryAttempts:   2,
		RetryDelay:      time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *ClientConfig) {
		c.BaseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithToken sets the personal API token sent in the Authorization header
func WithToken(token string) ClientOption {
	return func(c *ClientConfig) {
		c.Token = token
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.RetryAttempts = attempts
		c.RetryDelay = delay
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *ClientConfig) {
		c.HTTPClient = client
	}
}

func WithBreaker(failures uint32, timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.BreakerFailures = failures
		c.BreakerTimeout = timeout
	}
}
