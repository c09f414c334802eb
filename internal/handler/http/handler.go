package http

import (
	"github.com/MKhiriev/reflog-sync/internal/config"
	"github.com/MKhiriev/reflog-sync/internal/logger"
	"github.com/MKhiriev/reflog-sync/internal/service"
	"github.com/MKhiriev/reflog-sync/internal/validators"
)

const defaultMaxBodyBytes = validators.MaxPushBodyBytes

type Handler struct {
	services *service.Services

	maxBodyBytes int64
	ipLimiter    *rateLimiter
	userLimiter  *rateLimiter

	logger *logger.Logger
}

func NewHandler(services *service.Services, cfg config.Server, logger *logger.Logger) *Handler {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	logger.Info().
		Int64("max_body_bytes", maxBody).
		Int("rate_limit_per_minute", cfg.RateLimitPerMinute).
		Msg("http handler created")

	return &Handler{
		services:     services,
		maxBodyBytes: maxBody,
		ipLimiter:    newRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		userLimiter:  newRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst),
		logger:       logger,
	}
}
