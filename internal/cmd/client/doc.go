// Package client provides the client-side commands of the aesdsocket CLI.
//
// # Address configuration
//
// The echo server address defaults to 127.0.0.1:9000 and can be set with
// --addr or AESD_SERVER. Admin HTTP commands use a BaseURLFunc supplied by
// the embedding binary (AESD_ADMIN_URL, default http://127.0.0.1:9080). The
// gRPC health address is read from AESD_GRPC (default 127.0.0.1:9090).
//
// Usage
//
//	aesdsocket send "hello"
//	aesdsocket send --file record.txt --addr 10.0.0.7:9000
//	printf 'a\nb' | aesdsocket send --file - --no-newline
//
//	aesdsocket log --filter 'is_timestamp' --limit 3
//	aesdsocket log --filter 'line.contains("error")' --index
//	aesdsocket tasks --kind conn
//	aesdsocket health
package client
