// Command imageseo is the operator CLI. It talks to a running imageseod over
// its HTTP API to register sites, trigger processing, and inspect stats and
// run history, plus a few local configuration utilities.
package main
