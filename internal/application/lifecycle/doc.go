// Package lifecycle runs the API process through
// starting → listening → draining → stopped.
//
// Draining begins when the run context is cancelled (the entry point cancels
// it on SIGINT or SIGTERM): the listener closes, in-flight requests finish,
// and registered resources such as the database pool are released.
package lifecycle
