package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/sandeepkv93/endorsement-backend/internal/config"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	otlploggrpc "go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/trace"
)

const redacted = "[redacted]"

// sensitiveKeys never reach a log sink verbatim. OAuth codes and state values
// are bearer material until consumed.
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"secret":        {},
	"token":         {},
	"access_token":  {},
	"authorization": {},
	"code":          {},
	"state":         {},
	"client_secret": {},
}

// sessionHandler fans records out to every sink after masking credentials and
// stamping the active trace.
type sessionHandler struct {
	sinks []slog.Handler
}

func newSessionHandler(sinks ...slog.Handler) *sessionHandler {
	return &sessionHandler{sinks: sinks}
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range h.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *sessionHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		out.AddAttrs(slog.String("trace_id", sc.TraceID().String()), slog.String("span_id", sc.SpanID().String()))
	}
	for _, s := range h.sinks {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, out.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = redactAttr(a)
	}
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = s.WithAttrs(masked)
	}
	return &sessionHandler{sinks: sinks}
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	sinks := make([]slog.Handler, len(h.sinks))
	for i, s := range h.sinks {
		sinks[i] = s.WithGroup(name)
	}
	return &sessionHandler{sinks: sinks}
}

func redactAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, 0, len(group))
		for _, g := range group {
			masked = append(masked, redactAttr(g))
		}
		return slog.Group(a.Key, masked...)
	}
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

var (
	loggerMu     sync.RWMutex
	globalLogger *slog.Logger
)

// NewLogger returns the process logger installed by InitLogger, or a plain
// JSON logger before initialization.
func NewLogger() *slog.Logger {
	loggerMu.RLock()
	l := globalLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	return newJSONLogger(os.Stdout, slog.LevelInfo)
}

// NewBootstrapLogger is used before the OTel log pipeline exists (startup, CLI tools).
func NewBootstrapLogger(cfg *config.Config) *slog.Logger {
	return newJSONLogger(os.Stdout, parseLogLevel(cfg.OTELLogLevel))
}

func newJSONLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(newSessionHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

func InitLogger(cfg *config.Config, lp *sdklog.LoggerProvider) *slog.Logger {
	sinks := []slog.Handler{slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.OTELLogLevel)})}
	if cfg.OTELLogsEnabled && lp != nil {
		sinks = append(sinks, otelslog.NewHandler(cfg.OTELServiceName, otelslog.WithLoggerProvider(lp)))
	}
	l := slog.New(newSessionHandler(sinks...)).With("service", cfg.OTELServiceName, "env", cfg.Env)
	loggerMu.Lock()
	globalLogger = l
	loggerMu.Unlock()
	slog.SetDefault(l)
	return l
}

// ComponentLogger scopes a logger to one subsystem; nil falls back to the process logger.
func ComponentLogger(base *slog.Logger, component string) *slog.Logger {
	if base == nil {
		base = NewLogger()
	}
	return base.With("component", component)
}

func InitLogs(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdklog.LoggerProvider, error) {
	if !cfg.OTELLogsEnabled {
		return nil, nil
	}
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp log exporter: %w", err)
	}
	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("logs resource: %w", err)
	}
	logger.Info("otel log export enabled", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	), nil
}

func parseLogLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return slog.LevelInfo
	}
	return level
}
