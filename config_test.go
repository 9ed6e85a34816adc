package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := LoadConfig(WithDefaults())
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if c.BaudRate != 9600 || c.ListenPortBase != 16666 || c.PollInterval != 100*time.Millisecond {
			t.Errorf("unexpected defaults: %+v", c)
		}
		if err := c.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nbsockd.yaml")
		data := "serial_port: /dev/ttyS3\nlisten_port_base: 20000\npoll_interval: 250ms\n"
		if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}

		c, err := LoadConfig(WithDefaults(), WithFile(path))
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if c.SerialPort != "/dev/ttyS3" {
			t.Errorf("SerialPort = %q", c.SerialPort)
		}
		if c.ListenPortBase != 20000 {
			t.Errorf("ListenPortBase = %d", c.ListenPortBase)
		}
		if c.PollInterval != 250*time.Millisecond {
			t.Errorf("PollInterval = %s", c.PollInterval)
		}
		if c.BindAddress != "0.0.0.0:8080" {
			t.Errorf("BindAddress = %q, want default", c.BindAddress)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(WithFile(filepath.Join(t.TempDir(), "absent.yaml"))); err == nil {
			t.Error("LoadConfig() error = nil, want error")
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("SERIAL_PORT", "/dev/ttyACM0")
		t.Setenv("BAUD_RATE", "115200")
		t.Setenv("POLL_INTERVAL", "50ms")

		c, err := LoadConfig(WithDefaults(), WithEnv())
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if c.SerialPort != "/dev/ttyACM0" || c.BaudRate != 115200 || c.PollInterval != 50*time.Millisecond {
			t.Errorf("env not applied: %+v", c)
		}
	})

	t.Run("only set flags apply", func(t *testing.T) {
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.String("serial-port", "/dev/ttyUSB0", "")
		fs.Int("baud-rate", 9600, "")
		fs.Uint16("listen-port-base", 16666, "")
		fs.Duration("poll-interval", 100*time.Millisecond, "")
		if err := fs.Parse([]string{"--listen-port-base=30000", "--poll-interval=1s"}); err != nil {
			t.Fatal(err)
		}

		c, err := LoadConfig(WithDefaults(), WithFlags(fs))
		if err != nil {
			t.Fatalf("LoadConfig() error = %v", err)
		}
		if c.ListenPortBase != 30000 || c.PollInterval != time.Second {
			t.Errorf("flags not applied: %+v", c)
		}
		if c.SerialPort != "/dev/ttyUSB0" {
			t.Errorf("SerialPort = %q, want untouched", c.SerialPort)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero poll interval", mutate: func(c *Config) { c.PollInterval = 0 }, wantErr: true},
		{name: "zero max reply length", mutate: func(c *Config) { c.MaxReplyLen = 0 }, wantErr: true},
		{name: "zero listen port base", mutate: func(c *Config) { c.ListenPortBase = 0 }, wantErr: true},
		{name: "listen port base wraps below", mutate: func(c *Config) { c.ListenPortBase = 1 }, wantErr: true},
		{name: "lowest listen port base", mutate: func(c *Config) { c.ListenPortBase = 2 }},
		{name: "highest listen port base", mutate: func(c *Config) { c.ListenPortBase = 65529 }},
		{name: "listen port base overflows", mutate: func(c *Config) { c.ListenPortBase = 65530 }, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := LoadConfig(WithDefaults())
			if err != nil {
				t.Fatal(err)
			}
			tc.mutate(c)
			if err := c.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
