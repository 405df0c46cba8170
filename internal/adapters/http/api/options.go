package api

import "github.com/okian/pitchtrace/pkg/logger"

const defaultMaxBodyBytes = 64 << 20

type serverConfig struct {
	maxBodyBytes int64
	logger       logger.Logger
}

func defaultServerConfig() serverConfig {
	return serverConfig{maxBodyBytes: defaultMaxBodyBytes}
}

// Option configures the Server.
type Option func(*serverConfig)

// WithMaxBodyBytes bounds upload bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
