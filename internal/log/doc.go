// Package log provides secure logging functionality with automatic
// sanitization of sensitive information, built on top of the standard
// slog package.
//
// HAR files record complete browser sessions: request URLs with signed
// query strings, cookies, and authorization headers all appear in the
// data this tool processes. The SecureHandler masks such values before
// they reach log output, even in verbose mode, so that logs can be
// shared without leaking the captured session.
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("skipping entry",
//	    "url", "https://api.example.com/v1?token=abc", // token is masked
//	    "status", 204,
//	)
package log
