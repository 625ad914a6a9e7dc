// Package registry persists the client roster, their WordPress credentials,
// and lifetime processing counters as one JSON document on disk. Writes are
// serialized and atomic; the file layout stays readable for operators.
package registry
