// Package server accepts robot connections and runs one session per
// connection.
//
// Each accepted connection gets its own goroutine, framed channel and
// robot.Session. Sessions share nothing except the service counters, which
// back the optional admin HTTP surface (/health, /ready, /metrics, /sessions).
package server
