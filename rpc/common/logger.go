package common

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerNames lists every named logger of the application
var LoggerNames = []string{"rpc", "transport", "client", "db", "cmd"}

const logTimeFormat = "2006-01-02 15:04:05.000"

// sink is the zap logger all named loggers write to. It is swapped by InitLoggers.
var sink atomic.Pointer[zap.Logger]

func init() {
	sink.Store(newZapLogger(zapcore.AddSync(os.Stdout), nil))
}

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// bronzeLogger implements the ILogger interface on top of zap
type bronzeLogger struct {
	name  string
	level atomic.Int32
}

func (l *bronzeLogger) SetLevel(level logger.LogLevel) {
	l.level.Store(int32(level))
}

func (l *bronzeLogger) enabled(level logger.LogLevel) bool {
	return logger.LogLevel(l.level.Load()) >= level
}

func (l *bronzeLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.log(zapcore.DebugLevel, format, args...)
	}
}

func (l *bronzeLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.log(zapcore.InfoLevel, format, args...)
	}
}

func (l *bronzeLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.log(zapcore.WarnLevel, format, args...)
	}
}

func (l *bronzeLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.log(zapcore.ErrorLevel, format, args...)
	}
}

func (l *bronzeLogger) Panicf(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.log(zapcore.ErrorLevel, "%s", message)
	panic(message)
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *bronzeLogger) log(level zapcore.Level, format string, args ...interface{}) {
	z := sink.Load().Named(l.name)
	if ce := z.Check(level, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements dragonboat's logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	l := &bronzeLogger{name: pkgName}
	l.SetLevel(logger.INFO)
	return l
}

// --------------------------------------------------------------------------
// zap setup
// --------------------------------------------------------------------------

// newZapLogger writes human readable records to console and, if file is set, JSON records to file
func newZapLogger(console zapcore.WriteSyncer, file zapcore.WriteSyncer) *zap.Logger {
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(zapEncodeConfig(zapEncodeName)), console, zapcore.DebugLevel),
	}
	if file != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zapEncodeConfig(zapcore.FullNameEncoder)), file, zapcore.DebugLevel))
	}
	return zap.New(zapcore.NewTee(cores...))
}

func zapEncodeConfig(encodeName zapcore.NameEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "ts",
		NameKey:        "logger",
		StacktraceKey:  "stacktrace",
		LineEnding:     "\n",
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapEncodeTime,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeName:     encodeName,
	}
}

func zapEncodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(logTimeFormat))
}

// zapEncodeName pads the logger name so console columns line up
func zapEncodeName(name string, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(fmt.Sprintf("%-10s", name))
}

// zapFileSyncer creates a rotating log file
func zapFileSyncer(path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// ParseLogLevel converts a string level to logger.LogLevel
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, errors.Newf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// InitLoggers installs the zap backed logger factory and sets the level of
// all named loggers.
func InitLoggers(conf LogConf) error {
	level, err := ParseLogLevel(conf.Level)
	if err != nil {
		return err
	}

	var file zapcore.WriteSyncer
	if conf.File != "" {
		file = zapFileSyncer(conf.File)
	}
	sink.Store(newZapLogger(zapcore.AddSync(os.Stdout), file))

	// Set as the global logger factory for Dragonboat
	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}

// SyncLoggers flushes buffered log records, call before the process exits
func SyncLoggers() {
	_ = sink.Load().Sync()
}
