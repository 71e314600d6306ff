package logger

import "log/slog"

// PrefixedLogger scopes records to a component: the message reads
// "[tmi/forsen] joined" and the record carries component=tmi/forsen.
type PrefixedLogger struct {
	inner  Logger
	prefix string
	attr   slog.Attr
}

// NewPrefixedLogger wraps inner. Wrapping another PrefixedLogger nests the
// components as "outer/inner".
func NewPrefixedLogger(inner Logger, prefix string) *PrefixedLogger {
	if p, ok := inner.(*PrefixedLogger); ok {
		inner, prefix = p.inner, p.prefix+"/"+prefix
	}
	return &PrefixedLogger{inner: inner, prefix: prefix, attr: slog.String("component", prefix)}
}

func (p *PrefixedLogger) Prefix() string { return p.prefix }

func (p *PrefixedLogger) scope(msg string, args []any) (string, []any) {
	return "[" + p.prefix + "] " + msg, append([]any{p.attr}, args...)
}

func (p *PrefixedLogger) SetLogLevel(levelStr string) { p.inner.SetLogLevel(levelStr) }
func (p *PrefixedLogger) GetLogLevel() string         { return p.inner.GetLogLevel() }

func (p *PrefixedLogger) Trace(msg string, args ...any) {
	msg, args = p.scope(msg, args)
	p.inner.Trace(msg, args...)
}

func (p *PrefixedLogger) Debug(msg string, args ...any) {
	msg, args = p.scope(msg, args)
	p.inner.Debug(msg, args...)
}

func (p *PrefixedLogger) Info(msg string, args ...any) {
	msg, args = p.scope(msg, args)
	p.inner.Info(msg, args...)
}

func (p *PrefixedLogger) Warn(msg string, args ...any) {
	msg, args = p.scope(msg, args)
	p.inner.Warn(msg, args...)
}

func (p *PrefixedLogger) Error(msg string, err error, args ...any) {
	msg, args = p.scope(msg, args)
	p.inner.Error(msg, err, args...)
}

func (p *PrefixedLogger) Fatal(msg string, err error, args ...any) {
	msg, args = p.scope(msg, args)
	p.inner.Fatal(msg, err, args...)
}
