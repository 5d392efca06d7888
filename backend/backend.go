package backend

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultConfirmTimeout = 60 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
)

// Backend submits transactions and reads balances through a Client. One
// Backend may be shared by concurrent runs; it keeps no per-run state.
type Backend struct {
	logger         *logrus.Entry
	client         Client
	confirmTimeout time.Duration
	pollInterval   time.Duration
	skipPreflight  bool
}

type Option func(*Backend)

func WithLogger(logger *logrus.Entry) Option {
	return func(backend *Backend) {
		backend.logger = logger
	}
}

func WithConfirmTimeout(timeout time.Duration) Option {
	return func(backend *Backend) {
		if timeout > 0 {
			backend.confirmTimeout = timeout
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(backend *Backend) {
		if interval > 0 {
			backend.pollInterval = interval
		}
	}
}

func WithSkipPreflight(skip bool) Option {
	return func(backend *Backend) {
		backend.skipPreflight = skip
	}
}

func NewBackend(client Client, opts ...Option) *Backend {
	backend := &Backend{
		logger:         logrus.StandardLogger().WithField("type", "backend"),
		client:         client,
		confirmTimeout: DefaultConfirmTimeout,
		pollInterval:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(backend)
	}
	return backend
}
