package network_test

import (
	"context"
	"testing"
	"time"

	"i4.energy/across/nbsock/modem"
	"i4.energy/across/nbsock/network"
)

var _ network.CommandChannel = (*modem.Modem)(nil)

func newModemSession(t *testing.T) (*network.Session, *modem.TestTransport) {
	t.Helper()

	tt := modem.NewTestTransport().
		Reply("AT", "OK\r\n").
		Reply("ATE0", "OK\r\n").
		Reply("AT+CMEE=1", "OK\r\n").
		Reply("AT+CPIN?", "+CPIN: READY\r\nOK\r\n")

	config, err := modem.NewConfigBuilder().
		WithDialer(tt.Dialer()).
		WithATTimeout(time.Second).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	m, err := modem.New(context.Background(), config)
	if err != nil {
		t.Fatalf("modem.New() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })

	s := network.New(m,
		network.WithPollInterval(50*time.Millisecond),
		network.WithTimeouts(network.Timeouts{
			Open:  time.Second,
			Close: time.Second,
			Drain: 10 * time.Millisecond,
		}),
	)
	return s, tt
}

func TestSessionOverModem(t *testing.T) {
	s, tt := newModemSession(t)
	tt.Reply(`AT+NSOCR="DGRAM",17,16665`, "3\r\nOK\r\n").
		Reply(`AT+NSOST=3,"192.0.2.10",5683,2,"4869"`, "3,2\r\nOK\r\n").
		Reply("AT+NSORF=3,5", "+NSONMI: 3,5\r\nOK\r\n", "3,5,8,20,\"48656C6C6F\",0\r\nOK\r\n").
		Reply("AT+NSOCL=3", "OK\r\n")

	if !s.Connect("192.0.2.10", 5683) {
		t.Fatal("Connect() = false")
	}
	if s.Slot() != 3 {
		t.Fatalf("Slot() = %d, want 3", s.Slot())
	}

	if !s.Write([]byte("Hi"), time.Second) {
		t.Error("Write() = false")
	}

	p := make([]byte, 5)
	if n := s.Read(p, 5, time.Second); n != 5 || string(p) != "Hello" {
		t.Errorf("Read() = %d %q, want 5 %q", n, p, "Hello")
	}

	if !s.Disconnect() {
		t.Fatal("Disconnect() = false")
	}
	if s.Phase() != network.PhaseClosed {
		t.Errorf("Phase() = %v, want closed", s.Phase())
	}

	want := []string{
		`AT+NSOCR="DGRAM",17,16665`,
		`AT+NSOST=3,"192.0.2.10",5683,2,"4869"`,
		"AT+NSORF=3,5",
		"AT+NSORF=3,5",
		"AT+NSOCL=3",
	}
	writes := tt.Writes()
	got := writes[len(writes)-len(want):]
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSessionConnectErrorOverModem(t *testing.T) {
	s, tt := newModemSession(t)
	tt.Reply(`AT+NSOCR="DGRAM",17,16665`, "ERROR\r\n")

	if s.Connect("192.0.2.10", 5683) {
		t.Fatal("Connect() = true, want false")
	}
	if s.Slot() != network.Unassigned {
		t.Errorf("Slot() = %d, want %d", s.Slot(), network.Unassigned)
	}
}
