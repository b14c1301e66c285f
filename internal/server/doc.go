// Package server implements the HTTP monitoring API: node listing,
// listener statistics, active configuration and Prometheus metrics.
package server
