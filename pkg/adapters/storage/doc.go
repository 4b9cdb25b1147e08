// Package storage provides user record storage implementations.
//
// Implementations:
//   - postgres: raw parameterized SQL over the connection pool
//   - memory: In-memory with the same table and uniqueness semantics, for testing and local runs
//   - redis: users list cache with JSON serialization and TTL
package storage
