package diag

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapSink writes violations as structured log entries.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a sink that logs through l.
func NewZapSink(l *zap.Logger) *ZapSink {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapSink{logger: l}
}

func (s *ZapSink) Report(v Violation) {
	fields := []zap.Field{
		zap.String("id", v.ID),
		zap.String("kind", string(v.Kind)),
		zap.String("call", v.Call),
		zap.Stringer("handle", v.Handle),
		zap.Stringer("object", v.Object),
	}
	if v.Param != "" {
		fields = append(fields, zap.String("param", v.Param))
	}
	if v.Parent != 0 {
		fields = append(fields, zap.Stringer("parent", v.Parent))
	}
	if v.Thread != 0 {
		fields = append(fields, zap.Uint64("thread", v.Thread))
	}

	if ce := s.logger.Check(levelOf(v.Severity), v.Message); ce != nil {
		ce.Write(fields...)
	}
}

func levelOf(s Severity) zapcore.Level {
	switch {
	case s&SeverityError != 0:
		return zapcore.ErrorLevel
	case s&SeverityWarning != 0:
		return zapcore.WarnLevel
	case s&SeverityInfo != 0:
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

var _ Sink = (*ZapSink)(nil)
