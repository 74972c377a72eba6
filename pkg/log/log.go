// Package log wraps a zap SugaredLogger behind package level helpers.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sugar starts as a no-op logger so packages used before Init (and tests) never panic.
var sugar = zap.NewNop().Sugar()

// Init builds the process logger from the log section of the config.
func Init(level, format, outputPath string) {
	var zapConfig zap.Config

	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel.SetLevel(zap.InfoLevel)
	}

	encoding := "json"
	if format == "console" {
		encoding = "console"
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
	}

	zapConfig.Level = logLevel
	zapConfig.Encoding = encoding
	zapConfig.OutputPaths = []string{"stdout"}
	if outputPath != "" {
		// write to stdout and to {outputPath}/app.log
		_ = os.MkdirAll(outputPath, os.ModePerm)
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, outputPath+"/app.log")
	}

	logger, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}
	sugar = logger.Sugar()
}

// Info logs a message at info level.
func Info(msg string) {
	sugar.Info(msg)
}

// Infof logs a formatted message at info level.
func Infof(template string, args ...interface{}) {
	sugar.Infof(template, args...)
}

// Infow logs a message with key/value pairs at info level.
// Prefer it whenever the entry carries ids that operators will search for.
func Infow(msg string, keysAndValues ...interface{}) {
	sugar.Infow(msg, keysAndValues...)
}

// Warnf logs a formatted message at warn level.
func Warnf(template string, args ...interface{}) {
	sugar.Warnf(template, args...)
}

// Warnw logs a message with key/value pairs at warn level.
func Warnw(msg string, keysAndValues ...interface{}) {
	sugar.Warnw(msg, keysAndValues...)
}

// Error logs a message at error level together with err.
func Error(msg string, err error) {
	sugar.Errorw(msg, "error", err)
}

// Errorf logs a formatted message at error level.
func Errorf(template string, args ...interface{}) {
	sugar.Errorf(template, args...)
}

// Errorw logs a message with key/value pairs at error level.
func Errorw(msg string, keysAndValues ...interface{}) {
	sugar.Errorw(msg, keysAndValues...)
}

// Fatal logs msg and err, then exits the process.
func Fatal(msg string, err error) {
	sugar.Fatalw(msg, "error", err)
}

func Fatalf(template string, args ...interface{}) {
	sugar.Fatalf(template, args...)
}

// Sync flushes buffered log entries. Call it before the process exits.
func Sync() {
	_ = sugar.Sync()
}
