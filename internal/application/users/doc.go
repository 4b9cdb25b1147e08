// Package users implements the user read and write use cases.
//
// The service:
//   - Lists users, creating and seeding the users table on first access
//   - Creates users after checking that name and email are present
//   - Optionally serves the list from a cache, invalidated on every create
package users
