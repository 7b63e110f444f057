package config

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Level       string `yaml:"level"`
	Destination string `yaml:"destination,omitempty"`
	Mode        string `yaml:"mode,omitempty"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

func levelEnabler(level string) (zapcore.LevelEnabler, bool) {
	switch level {
	case "normal":
		return zap.NewAtomicLevelAt(zap.InfoLevel), true
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel), true
	}
	return nil, false
}

// Prepare returns the program logger. Console output always goes to console,
// normally stderr, as stdout may carry the resulting document. The returned
// closer releases the log file, if any.
func (conf *LoggingConfig) Prepare(console io.Writer) (*zap.Logger, func() error, error) {
	var (
		cores  []zapcore.Core
		closer = func() error { return nil }
	)

	if lvl, ok := levelEnabler(conf.ConsoleLogger.Level); ok {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeCaller = nil
		ec.TimeKey = zapcore.OmitKey
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.AddSync(console), lvl))
	}

	if lvl, ok := levelEnabler(conf.FileLogger.Level); ok {
		flags := os.O_CREATE | os.O_WRONLY
		if conf.FileLogger.Mode == "overwrite" {
			flags |= os.O_TRUNC
		} else {
			flags |= os.O_APPEND
		}
		f, err := os.OpenFile(conf.FileLogger.Destination, flags, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
		}
		closer = f.Close
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), lvl))
	}

	if len(cores) == 0 {
		return zap.NewNop(), closer, nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named("emogrify"), closer, nil
}
