package mcp

import "log/slog"

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's structured logger. Servers on a stdio
// transport must log to stderr so stdout stays a clean protocol channel.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithRateLimiting enables request rate limiting with the given config.
func WithRateLimiting(cfg RateLimitConfig) Option {
	return func(s *Server) { s.limiter = NewRateLimiter(cfg) }
}

// WithInstructions sets the usage hint returned from the handshake.
func WithInstructions(instructions string) Option {
	return func(s *Server) { s.instructions = instructions }
}

// WithCapabilities overrides the advertised server capabilities.
func WithCapabilities(caps Capabilities) Option {
	return func(s *Server) { s.caps = caps }
}
