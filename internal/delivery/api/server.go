// internal/delivery/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"smart-money-screener/pkg/logger"
)

// Server - read-only HTTP API и /metrics
type Server struct {
	server *http.Server
	addr   string
}

// NewServer создает сервер на порту port
func NewServer(port int, h *Handler) *Server {
	addr := fmt.Sprintf(":%d", port)
	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:              addr,
			Handler:           h.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
	}
}

// Start запускает ListenAndServe в отдельной горутине
func (s *Server) Start() error {
	logger.Info("🚀 [API] HTTP сервер на %s", s.addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("❌ [API] Ошибка HTTP сервера: %v", err)
		}
	}()
	return nil
}

// Stop - graceful shutdown
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("Server.Stop: %w", err)
	}
	logger.Info("🛑 [API] HTTP сервер остановлен")
	return nil
}

// Name возвращает имя сервиса
func (s *Server) Name() string {
	return "HTTPServer"
}
