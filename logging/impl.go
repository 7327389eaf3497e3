package logging

import (
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// impl routes a zap sugared logger into a set of appenders. Level and appenders can change after
// construction, so the core reads them from impl on every entry.
type impl struct {
	*zap.SugaredLogger

	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	imp := &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		inUTC:     inUTC,
		appenders: appenders,
	}
	// skip the frame of the embedded method so callers see their own file and line
	imp.SugaredLogger = zap.New(&appenderCore{imp: imp}, zap.AddCaller(), zap.AddCallerSkip(1)).
		Sugar().Named(name)
	return imp
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return newImpl(name, imp.level.Get(), imp.inUTC, slices.Clone(imp.appenders)...)
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Level() zapcore.Level {
	return imp.level.Get().AsZap()
}

// Logging methods are forwarded so the caller skip lands on the code calling impl.

func (imp *impl) Debug(args ...interface{}) { imp.SugaredLogger.Debug(args...) }

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.SugaredLogger.Debugf(template, args...)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.SugaredLogger.Debugw(msg, keysAndValues...)
}

func (imp *impl) Info(args ...interface{}) { imp.SugaredLogger.Info(args...) }

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.SugaredLogger.Infof(template, args...)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.SugaredLogger.Infow(msg, keysAndValues...)
}

func (imp *impl) Warn(args ...interface{}) { imp.SugaredLogger.Warn(args...) }

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.SugaredLogger.Warnf(template, args...)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.SugaredLogger.Warnw(msg, keysAndValues...)
}

func (imp *impl) Error(args ...interface{}) { imp.SugaredLogger.Error(args...) }

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.SugaredLogger.Errorf(template, args...)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.SugaredLogger.Errorw(msg, keysAndValues...)
}

func (imp *impl) Fatal(args ...interface{}) { imp.SugaredLogger.Fatal(args...) }

func (imp *impl) Fatalf(template string, args ...interface{}) {
	imp.SugaredLogger.Fatalf(template, args...)
}

func (imp *impl) Fatalw(msg string, keysAndValues ...interface{}) {
	imp.SugaredLogger.Fatalw(msg, keysAndValues...)
}

// Derived zap loggers are called directly, without the forwarding frame.

func (imp *impl) Desugar() *zap.Logger {
	return imp.SugaredLogger.Desugar().WithOptions(zap.AddCallerSkip(-1))
}

func (imp *impl) Named(name string) *zap.SugaredLogger {
	return imp.unskipped().Named(name)
}

func (imp *impl) With(args ...interface{}) *zap.SugaredLogger {
	return imp.unskipped().With(args...)
}

func (imp *impl) WithOptions(opts ...zap.Option) *zap.SugaredLogger {
	return imp.unskipped().WithOptions(opts...)
}

func (imp *impl) unskipped() *zap.SugaredLogger {
	return imp.SugaredLogger.WithOptions(zap.AddCallerSkip(-1))
}

// appenderCore is the zapcore.Core behind every Logger.
type appenderCore struct {
	imp    *impl
	fields []zapcore.Field
}

func (c *appenderCore) Enabled(level zapcore.Level) bool {
	return level >= c.imp.level.Get().AsZap()
}

func (c *appenderCore) With(fields []zapcore.Field) zapcore.Core {
	return &appenderCore{imp: c.imp, fields: append(slices.Clip(c.fields), fields...)}
}

func (c *appenderCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *appenderCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if c.imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	all := append(slices.Clip(c.fields), fields...)
	var errs error
	for _, appender := range c.imp.appenders {
		errs = multierr.Append(errs, appender.Write(entry, all))
	}
	return errs
}

func (c *appenderCore) Sync() error {
	var errs error
	for _, appender := range c.imp.appenders {
		errs = multierr.Append(errs, appender.Sync())
	}
	return errs
}
