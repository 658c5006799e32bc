package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"inkpost/internal/config"
)

const (
	allowRemoteEnvKey = "INKPOST_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	// Large post uploads stream for minutes.
	readTimeout  = 15 * time.Minute
	writeTimeout = 15 * time.Minute
	idleTimeout  = 60 * time.Second

	uploadConcurrencyLimit = 8
)

// Options tunes a Server.
type Options struct {
	// APITokenHash is a bcrypt hash; empty disables authentication.
	APITokenHash       string
	MultipartMaxMemory int64
	Metrics            *Metrics
}

// Server wraps HTTP handlers for the inkpost upload API.
type Server struct {
	addr          string
	uploads       *UploadService
	logger        *slog.Logger
	metrics       *Metrics
	apiTokenHash  string
	verified      sync.Map
	multipartMem  int64
	uploadLimiter chan struct{}
}

// New creates a new server instance.
func New(addr string, uploads *UploadService, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	if uploads != nil {
		uploads.metrics = metrics
		if uploads.logger == nil {
			uploads.logger = logger
		}
	}
	multipartMem := opts.MultipartMaxMemory
	if multipartMem <= 0 {
		multipartMem = config.DefaultMultipartMemory
	}

	return &Server{
		addr:          addr,
		uploads:       uploads,
		logger:        logger,
		metrics:       metrics,
		apiTokenHash:  strings.TrimSpace(opts.APITokenHash),
		multipartMem:  multipartMem,
		uploadLimiter: make(chan struct{}, uploadConcurrencyLimit),
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withAuth(s.routes()))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
