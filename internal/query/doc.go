// Package query filters the shared log line by line with CEL expressions,
// for example `is_timestamp` or `line.startsWith("error") && index > 3`.
package query
