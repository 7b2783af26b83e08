package chatbot

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/hyperjump/intentbot/internal/corpus"
	"github.com/hyperjump/intentbot/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LoadFunc builds a fresh Service.
type LoadFunc func(ctx context.Context) (*Service, error)

// FileLoader returns a LoadFunc that reads the corpus and snapshot from disk
// on every call.
func FileLoader(snapshotPath, corpusPath string, opts ...Option) LoadFunc {
	return func(context.Context) (*Service, error) {
		c, err := corpus.Load(corpusPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load corpus: %w", err)
		}
		return Load(snapshotPath, c, opts...)
	}
}

// Holder owns the process-wide Service. The first caller loads it; concurrent
// first callers wait on the same load. Reload swaps in a new Service without
// blocking readers.
type Holder struct {
	load   LoadFunc
	cur    atomic.Pointer[Service]
	group  singleflight.Group
	logger *zap.Logger
}

// HolderOption configures a Holder.
type HolderOption func(*Holder)

// WithHolderLogger sets a logger for load and reload events.
func WithHolderLogger(l *zap.Logger) HolderOption {
	return func(h *Holder) { h.logger = l }
}

// NewHolder creates a holder around load. Nothing is loaded until first use.
func NewHolder(load LoadFunc, opts ...HolderOption) *Holder {
	h := &Holder{load: load}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = utils.OrNop(h.logger)
	return h
}

// Current returns the loaded service, or nil before the first successful load.
func (h *Holder) Current() *Service {
	return h.cur.Load()
}

// Get returns the service, loading it on first use. A failed load is not
// cached; the next call tries again.
func (h *Holder) Get(ctx context.Context) (*Service, error) {
	if s := h.cur.Load(); s != nil {
		return s, nil
	}
	v, err, _ := h.group.Do("init", func() (any, error) {
		if s := h.cur.Load(); s != nil {
			return s, nil
		}
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		s, err := h.load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		h.cur.CompareAndSwap(nil, s)
		h.logger.Info("chatbot loaded", zap.String("snapshot", s.Snapshot().ID))
		return h.cur.Load(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Service), nil
}

// Reload builds a new service and swaps it in. On failure the previous
// service keeps serving and the error is returned.
func (h *Holder) Reload(ctx context.Context) (*Service, error) {
	v, err, _ := h.group.Do("reload", func() (any, error) {
		s, err := h.load(ctx)
		if err != nil {
			return nil, err
		}
		h.cur.Store(s)
		h.logger.Info("chatbot reloaded", zap.String("snapshot", s.Snapshot().ID))
		return s, nil
	})
	if err != nil {
		h.logger.Warn("reload failed, keeping current model", zap.Error(err))
		return nil, err
	}
	return v.(*Service), nil
}

// Respond answers message with the current service. Load failures are
// reported in the reply text instead of being returned.
func (h *Holder) Respond(ctx context.Context, message string) Reply {
	s, err := h.Get(ctx)
	if err != nil {
		return Reply{Text: errorText(err)}
	}
	return s.Respond(ctx, message)
}

// Reply answers message with text only.
func (h *Holder) Reply(ctx context.Context, message string) string {
	return h.Respond(ctx, message).Text
}

func errorText(err error) string {
	return "Error: " + err.Error()
}
