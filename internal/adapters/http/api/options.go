package api

import (
	"golang.org/x/time/rate"

	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxRequestBytes bounds request bodies.
func WithMaxRequestBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRequestBytes = n
		}
	}
}

// WithSimulateLimit throttles simulation requests to perSecond with the given
// burst. A non-positive rate disables the limit.
func WithSimulateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.simulateLimiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.simulateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithAllowedOrigins admits live stream clients from origins other than the
// server's own. "*" admits any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, o := range origins {
			o = normalizeOrigin(o)
			switch {
			case o == "":
			case o == "*":
				s.anyOrigin = true
			default:
				if s.allowedOrigins == nil {
					s.allowedOrigins = make(map[string]struct{}, len(origins))
				}
				s.allowedOrigins[o] = struct{}{}
			}
		}
	}
}
