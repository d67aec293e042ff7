package evidence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Config selects and configures an evidence backend from an external
// JSON document:
//
//	{"backend": "localfs", "dir": "/var/lib/hap/evidence"}
//	{"backend": "grpc", "target": "127.0.0.1:7788", "timeout_ms": 2000}
type Config struct {
	Backend   string `json:"backend"`
	Dir       string `json:"dir,omitempty"`
	Target    string `json:"target,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty"`
}

// LoadConfig reads and validates a config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("evidence: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks the config without opening anything.
func (c Config) Validate() error {
	switch c.Backend {
	case "localfs":
		if c.Dir == "" {
			return errors.New("evidence: localfs backend requires dir")
		}
		return nil
	case "grpc":
		if c.Target == "" {
			return errors.New("evidence: grpc backend requires target")
		}
		return nil
	case "":
		return errors.New("evidence: backend is required")
	default:
		return fmt.Errorf("evidence: unknown backend %q", c.Backend)
	}
}

// Open opens the configured store. The returned close function is nil
// for backends with nothing to release.
func (c Config) Open() (Store, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	switch c.Backend {
	case "localfs":
		s, err := NewFSStore(c.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "grpc":
		client, err := Dial(c.Target, DialOptions{Timeout: time.Duration(c.TimeoutMS) * time.Millisecond})
		if err != nil {
			return nil, nil, err
		}
		if c.TimeoutMS > 0 {
			client.Timeout = time.Duration(c.TimeoutMS) * time.Millisecond
		}
		return client, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("evidence: unknown backend %q", c.Backend)
	}
}
