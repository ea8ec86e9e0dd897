package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// BaseURLFunc provides the admin HTTP base URL (e.g., from env or flag).
type BaseURLFunc func() string

// DefaultBaseURL reads AESD_ADMIN_URL, falling back to http://127.0.0.1:9080.
func DefaultBaseURL() string {
	if u := os.Getenv("AESD_ADMIN_URL"); u != "" {
		return u
	}
	return "http://127.0.0.1:9080"
}

// serverAddrFromEnv returns the echo server address from AESD_SERVER or a default.
func serverAddrFromEnv() string {
	if addr := os.Getenv("AESD_SERVER"); addr != "" {
		return addr
	}
	return "127.0.0.1:9000"
}

// grpcAddrFromEnv returns the admin gRPC address from AESD_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("AESD_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:9090"
}

// dialGRPC connects to addr with insecure transport for local/dev.
func dialGRPC(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// getJSON fetches url and decodes a JSON body into out.
func getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: %s: %s", url, resp.Status, b)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
