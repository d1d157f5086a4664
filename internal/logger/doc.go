// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level and format parsing utilities,
//   - an adapter satisfying the scheduler's logger interface.
//
// Components accept a context and extract the logger from it, so a tick, a
// command and a transport request all log with their own scope.
package logger
