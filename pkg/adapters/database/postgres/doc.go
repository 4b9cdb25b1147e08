// Package postgres provides the PostgreSQL connection pool.
//
// The pool wraps pgxpool with the acquisition contract used by the API:
// bounded acquisition time, scoped use through WithConn, and classification
// of driver errors into the kinds declared in pkg/ports.
package postgres
