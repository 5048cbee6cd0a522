package config

import (
	"errors"
	"net"
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	if c.Risk.AnalysisTimeout <= 0 {
		return errors.New("analysis_timeout must be positive")
	}

	if c.Risk.MaxBatchSize <= 0 {
		return errors.New("max_batch_size must be positive")
	}

	for _, ip := range c.Risk.IPBlocklist {
		if net.ParseIP(ip) == nil {
			return errors.New("ip_blocklist contains an invalid address: " + ip)
		}
	}

	return nil
}
