// Package config provides configuration management for the users API.
//
// Configuration is loaded from environment variables using the env package.
// Server and pool settings have defaults; the database location (DB_HOST,
// DB_NAME, DB_USER) must be supplied when the postgres storage driver is used.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
