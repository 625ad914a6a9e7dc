// Package runlog records finished pipeline runs in SQLite so operators can
// inspect what ran, when, and with what outcome. It is observational only;
// the pipeline never reads it to make decisions.
package runlog
