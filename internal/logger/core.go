package logger

import (
	"go.uber.org/zap/zapcore"
)

// LogSink receives entries copied out of the zap pipeline.
type LogSink interface {
	AddLog(entry LogEntry)
}

// DBCore wraps the console core and hands every written entry to a LogSink.
// Fields bound with With are remembered so derived loggers keep their
// customer and provider tags in the sink.
type DBCore struct {
	zapcore.Core
	sink  LogSink
	bound LogEntry
}

func NewDBCore(baseCore zapcore.Core, sink LogSink) zapcore.Core {
	return &DBCore{
		Core: baseCore,
		sink: sink,
	}
}

func (c *DBCore) With(fields []zapcore.Field) zapcore.Core {
	bound := c.bound
	bound.apply(fields)
	return &DBCore{
		Core:  c.Core.With(fields),
		sink:  c.sink,
		bound: bound,
	}
}

func (c *DBCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	out := c.bound
	out.apply(fields)
	out.Level = entry.Level
	out.Logger = entry.LoggerName
	out.Message = entry.Message
	out.Caller = entry.Caller.Function
	out.Time = entry.Time
	c.sink.AddLog(out)

	return c.Core.Write(entry, fields)
}

func (c *DBCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
