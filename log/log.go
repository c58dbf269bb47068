// Copyright (c) 2025 The Roundel developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// handlerOp is a recorded WithAttrs/WithGroup call, replayed lazily so loggers
// created before Setup still route through the configured handler.
type handlerOp struct {
	attrs []slog.Attr
	group string
}

// swapHandler delegates to a replaceable inner handler.
type swapHandler struct {
	inner *atomic.Value // slog.Handler
	ops   []handlerOp
}

func (h *swapHandler) resolve() slog.Handler {
	hh := h.inner.Load().(slog.Handler)
	for _, op := range h.ops {
		if op.group != "" {
			hh = hh.WithGroup(op.group)
		} else {
			hh = hh.WithAttrs(op.attrs)
		}
	}
	return hh
}

func (h *swapHandler) with(op handlerOp) *swapHandler {
	ops := make([]handlerOp, 0, len(h.ops)+1)
	ops = append(ops, h.ops...)
	return &swapHandler{inner: h.inner, ops: append(ops, op)}
}

func (h *swapHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.resolve().Enabled(ctx, level)
}

func (h *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(handlerOp{attrs: attrs})
}

func (h *swapHandler) WithGroup(name string) slog.Handler {
	return h.with(handlerOp{group: name})
}

var (
	rootInner = func() *atomic.Value {
		v := new(atomic.Value)
		v.Store(slog.Handler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
		return v
	}()
	root = slog.New(&swapHandler{inner: rootInner})
)

// Setup configures the process-wide logger.
// A colorized terminal handler is used when stderr is a tty, JSON otherwise.
func Setup(level slog.Level, forceJSON bool) {
	var handler slog.Handler
	if !forceJSON && isatty.IsTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	rootInner.Store(handler)
}

// WithContext returns a logger carrying the given context attributes.
// Conventionally the first pair is ("pkg", <package name>).
func WithContext(args ...any) *slog.Logger {
	return root.With(args...)
}

// Root returns the process-wide logger.
func Root() *slog.Logger {
	return root
}
