// Package daemon runs the long-lived agent process: the HTTP API that
// registers clients and triggers runs, the periodic scheduler that re-sweeps
// every registered site, and the single-instance lock.
package daemon
