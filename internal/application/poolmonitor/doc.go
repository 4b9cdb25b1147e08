// Package poolmonitor samples the database connection pool on an interval,
// feeding the pool gauges and warning when every connection is in use.
package poolmonitor
