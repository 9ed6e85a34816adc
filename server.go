package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"i4.energy/across/nbsock/network"
)

// Socket is the part of network.Session the server drives.
type Socket interface {
	Connect(host string, port uint16) bool
	Disconnect() bool
	Write(p []byte, timeout time.Duration) bool
	Read(p []byte, length int, timeout time.Duration) int
	Phase() network.Phase
	ListenPort() uint16
}

// DefaultMaxReplyLen is the largest datagram the modem buffers.
const DefaultMaxReplyLen = 512

// Server exchanges datagrams through the modem on behalf of HTTP clients.
// The modem has one command channel, so requests are handled one at a
// time.
type Server struct {
	Logger         *slog.Logger
	Socket         Socket
	WriteTimeout   time.Duration
	MaxReadTimeout time.Duration
	// MaxReplyLen bounds reply_len. Zero means DefaultMaxReplyLen.
	MaxReplyLen int

	mu sync.Mutex
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /datagram", s.handleDatagram)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	s.sendJSON(w, resp, statusCode)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Failed to encode response", "error", err)
	}
}

// DatagramRequest is the body of POST /datagram. Payload and the reply are
// base64 in JSON.
type DatagramRequest struct {
	Host      string `json:"host"`
	Port      uint16 `json:"port"`
	Payload   []byte `json:"payload"`
	ReplyLen  int    `json:"reply_len"`
	TimeoutMS int    `json:"timeout_ms"`
}

// DatagramResponse answers POST /datagram.
type DatagramResponse struct {
	Reply []byte `json:"reply,omitempty"`
}

// handleDatagram sends one datagram and optionally waits for the reply
func (s *Server) handleDatagram(w http.ResponseWriter, r *http.Request) {
	var req DatagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Host == "" || req.Port == 0 || len(req.Payload) == 0 {
		s.sendError(w, "'host', 'port' and 'payload' fields are required", http.StatusBadRequest)
		return
	}
	if req.ReplyLen < 0 || req.TimeoutMS < 0 {
		s.sendError(w, "'reply_len' and 'timeout_ms' must not be negative", http.StatusBadRequest)
		return
	}
	maxReplyLen := s.MaxReplyLen
	if maxReplyLen <= 0 {
		maxReplyLen = DefaultMaxReplyLen
	}
	if req.ReplyLen > maxReplyLen {
		s.sendError(w, fmt.Sprintf("'reply_len' must not exceed %d", maxReplyLen), http.StatusBadRequest)
		return
	}
	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	if s.MaxReadTimeout > 0 {
		timeout = min(timeout, s.MaxReadTimeout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.Logger.With("host", req.Host, "port", req.Port)

	if !s.Socket.Connect(req.Host, req.Port) {
		logger.Error("Failed to open socket")
		s.sendError(w, "modem could not open a socket", http.StatusBadGateway)
		return
	}
	defer func() {
		if !s.Socket.Disconnect() {
			logger.Warn("Failed to close socket")
		}
	}()

	if !s.Socket.Write(req.Payload, s.WriteTimeout) {
		logger.Error("Failed to send datagram", "length", len(req.Payload))
		s.sendError(w, "modem did not accept the datagram", http.StatusBadGateway)
		return
	}

	var resp DatagramResponse
	if req.ReplyLen > 0 {
		buf := make([]byte, req.ReplyLen)
		n := s.Socket.Read(buf, req.ReplyLen, timeout)
		resp.Reply = buf[:n]
		if n == 0 {
			logger.Warn("No reply before timeout", "timeout", timeout)
			s.sendError(w, "no reply before timeout", http.StatusGatewayTimeout)
			return
		}
	}

	logger.Info("Datagram exchanged", "sent", len(req.Payload), "received", len(resp.Reply))
	s.sendJSON(w, resp, http.StatusOK)
}

// Release closes a socket left open, waiting for any request in flight
// to finish first.
func (s *Server) Release() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Socket.Phase() != network.PhaseOpen {
		return true
	}
	return s.Socket.Disconnect()
}

// StatusResponse answers GET /status.
type StatusResponse struct {
	Phase      string `json:"phase"`
	ListenPort uint16 `json:"listen_port"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.mu.TryLock() {
		s.sendJSON(w, StatusResponse{Phase: "busy"}, http.StatusOK)
		return
	}
	defer s.mu.Unlock()

	s.sendJSON(w, StatusResponse{
		Phase:      s.Socket.Phase().String(),
		ListenPort: s.Socket.ListenPort(),
	}, http.StatusOK)
}
