// Package logger wraps zap with:
//   - a global sugared logger with console or JSON encoding,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level parsing and runtime level changes,
//   - a Printer adapter for libraries that expect Println/Printf sinks.
//
// Components receive a context and log through it, so names and fields
// attached upstream follow the call into the control loop and tool workers.
package logger
