package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// contextKey is the private key type for loggers stored in a context.
type contextKey struct{}

// ToContext returns a copy of ctx carrying l.
func ToContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx or the global logger.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return global
	}

	if l, ok := ctx.Value(contextKey{}).(*zap.SugaredLogger); ok && l != nil {
		return l
	}

	return global
}

// WithName appends a name segment to the logger stored in ctx.
func WithName(ctx context.Context, name string) context.Context {
	return ToContext(ctx, FromContext(ctx).Named(name))
}

// WithKV attaches a single key-value pair to the logger stored in ctx.
func WithKV(ctx context.Context, key string, value any) context.Context {
	return ToContext(ctx, FromContext(ctx).With(key, value))
}

// WithFields attaches several key-value pairs to the logger stored in ctx.
func WithFields(ctx context.Context, kvs ...any) context.Context {
	return ToContext(ctx, FromContext(ctx).With(kvs...))
}

// Printer adapts the context logger to Println/Printf style sinks
// used by third-party clients.
type Printer struct {
	// log receives every printed line.
	log *zap.Logger
	// level is the level every line is written at.
	level zapcore.Level
	// prefix is prepended to every line.
	prefix string
}

// NewPrinter returns a Printer writing lines at level.
func NewPrinter(ctx context.Context, level zapcore.Level, prefix string) *Printer {
	return &Printer{
		log:    FromContext(ctx).Desugar().WithOptions(zap.AddCallerSkip(1)),
		level:  level,
		prefix: prefix,
	}
}

// Println implements the Println half of common logger interfaces.
func (p *Printer) Println(v ...any) {
	p.write(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Printf implements the Printf half of common logger interfaces.
func (p *Printer) Printf(format string, v ...any) {
	p.write(fmt.Sprintf(format, v...))
}

func (p *Printer) write(msg string) {
	if ce := p.log.Check(p.level, p.prefix+msg); ce != nil {
		ce.Write()
	}
}
