package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stderrSink is the console destination. Replaced in tests.
var stderrSink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)

// newCore builds the stderr and/or file cores, wrapped with sampling.
// The returned closer releases the log file and is nil when no file is open.
func newCore(cfg *Config) (zapcore.Core, io.Closer, error) {
	cores := make([]zapcore.Core, 0, 2)

	encoder, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redacting encoder: %w", err)
	}

	if cfg.Output.Stderr {
		cores = append(cores, zapcore.NewCore(encoder, stderrSink, cfg.Level))
	}

	var closer io.Closer
	if cfg.Output.File != "" {
		f, err := openLogFile(cfg.Output.File)
		if err != nil {
			return nil, nil, err
		}
		closer = f
		// Files always get JSON so they stay machine-readable
		fileEncoder, err := NewRedactingEncoder(newEncoder("json"), cfg.Redaction)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("failed to create redacting encoder: %w", err)
		}
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(f), cfg.Level))
	}

	if len(cores) == 0 {
		return nil, nil, fmt.Errorf("at least one output must be enabled")
	}

	core := zapcore.NewTee(cores...)
	return newSampledCore(core, cfg.Sampling), closer, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = levelName

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}
