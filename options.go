package ksched

// schedulerOptions holds configuration resolved from Option values at
// construction time.
type schedulerOptions struct {
	logger        Logger
	idleTimeoutMs int
	stackSize     int
}

// Option configures a Scheduler at construction time.
type Option interface {
	applyScheduler(*schedulerOptions)
}

type optionFunc func(*schedulerOptions)

func (f optionFunc) applyScheduler(o *schedulerOptions) { f(o) }

// WithLogger sets the structured logger used for scheduler, task, poller,
// and socket lifecycle events. The default is a disabled (no-op) logger.
func WithLogger(l Logger) Option {
	return optionFunc(func(o *schedulerOptions) {
		o.logger = l
	})
}

// WithIdleTimeout overrides DefaultIdleTimeoutMs, the poll timeout used
// when no task is scheduled.
func WithIdleTimeout(ms int) Option {
	return optionFunc(func(o *schedulerOptions) {
		o.idleTimeoutMs = ms
	})
}

// WithStackSize overrides DefaultStackSize. Retained for interface parity;
// Go goroutine stacks are dynamically sized, so this value is informational
// only and not used to allocate anything.
func WithStackSize(bytes int) Option {
	return optionFunc(func(o *schedulerOptions) {
		o.stackSize = bytes
	})
}

func resolveOptions(opts []Option) *schedulerOptions {
	cfg := &schedulerOptions{
		idleTimeoutMs: DefaultIdleTimeoutMs,
		stackSize:     DefaultStackSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.applyScheduler(cfg)
	}
	if cfg.idleTimeoutMs <= 0 {
		cfg.idleTimeoutMs = DefaultIdleTimeoutMs
	}
	return cfg
}
