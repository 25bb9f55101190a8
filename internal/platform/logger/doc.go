// Package logger sets up the process-wide JSON slog logger and carries
// request-scoped loggers through context.Context.
//
// Handlers, services and stores call FromContextFor with their own component
// logger and name, so a request's trace_id follows every line it causes and
// each line still says which component wrote it.
package logger
