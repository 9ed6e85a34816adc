package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"i4.energy/across/nbsock/network"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate for serial communication with the modem (e.g. 9600)
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// SimPIN is the SIM card PIN code
	SimPIN string `yaml:"sim_pin"`

	// ListenPortBase is the local UDP port of socket 0
	ListenPortBase uint16 `yaml:"listen_port_base"`
	// PollInterval is the read loop's notification poll step
	PollInterval time.Duration `yaml:"poll_interval"`
	// WriteTimeout bounds the modem's answer to a datagram send
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// MaxReadTimeout caps the timeout a client may request
	MaxReadTimeout time.Duration `yaml:"max_read_timeout"`
	// MaxReplyLen caps the reply length a client may request
	MaxReplyLen int `yaml:"max_reply_len"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 9600
		c.LogLevel = "info"
		c.ListenPortBase = 16666
		c.PollInterval = 100 * time.Millisecond
		c.WriteTimeout = 5 * time.Second
		c.MaxReadTimeout = time.Minute
		c.MaxReplyLen = 512
		return nil
	}
}

// WithFile overlays the YAML file at path. An empty path is skipped.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if simPIN := os.Getenv("SIM_PIN"); simPIN != "" {
			c.SimPIN = simPIN
		}

		if base := os.Getenv("LISTEN_PORT_BASE"); base != "" {
			if b, err := strconv.ParseUint(base, 10, 16); err == nil {
				c.ListenPortBase = uint16(b)
			}
		}

		if poll := os.Getenv("POLL_INTERVAL"); poll != "" {
			if d, err := time.ParseDuration(poll); err == nil {
				c.PollInterval = d
			}
		}

		return nil
	}
}

// WithFlags loads configuration from the command-line flags that were set
func WithFlags(fSet *pflag.FlagSet) ConfigOption {
	return func(c *Config) error {
		var err error
		fSet.Visit(func(f *pflag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				c.BaudRate, err = fSet.GetInt(f.Name)
			case "log-level":
				c.LogLevel = f.Value.String()
			case "sim-pin":
				c.SimPIN = f.Value.String()
			case "listen-port-base":
				c.ListenPortBase, err = fSet.GetUint16(f.Name)
			case "poll-interval":
				c.PollInterval, err = fSet.GetDuration(f.Name)
			}
		})
		return err
	}
}

// Validate rejects settings the gateway cannot run with.
func (c *Config) Validate() error {
	if c.SerialPort == "" {
		return fmt.Errorf("serial port is required")
	}
	if !network.ValidListenPortBase(c.ListenPortBase) {
		return fmt.Errorf("listen port base must be within [%d, %d], got %d",
			network.MinListenPortBase, network.MaxListenPortBase, c.ListenPortBase)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxReplyLen <= 0 {
		return fmt.Errorf("max reply length must be positive, got %d", c.MaxReplyLen)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %s", c.WriteTimeout)
	}
	return nil
}
