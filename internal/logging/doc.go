// Package logging provides structured logging for litweaver on top of Zap.
//
// Logs go to stderr so that command output on stdout stays clean, and
// optionally to a JSON log file. Every entry passes through a redacting
// encoder that hides API keys and bearer tokens.
//
// Context-aware methods attach correlation fields automatically:
//
//	ctx = logging.WithCommand(ctx, "process")
//	ctx = logging.WithProject(ctx, "my_review")
//	logger.Info(ctx, "file processed", zap.String("file", path))
//
// A custom Trace level sits below Debug for per-chunk detail.
//
// Use NewTestLogger in tests to observe and assert on log output.
package logging
