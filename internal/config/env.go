package config

import (
	"os"
	"strconv"
)

// FromEnv overlays AESD_* environment variables onto cfg. Malformed numbers
// are ignored and leave the current value in place.
func FromEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("AESD_ADDR", &cfg.Addr)
	str("AESD_DATA_FILE", &cfg.DataFile)
	str("AESD_BACKEND", &cfg.Backend)
	str("AESD_FSYNC", &cfg.Fsync)
	num("AESD_FSYNC_INTERVAL_MS", &cfg.FsyncIntervalMs)
	num("AESD_TIMER_INTERVAL_MS", &cfg.TimerIntervalMs)
	num("AESD_RECV_BUFFER_BYTES", &cfg.RecvBufferBytes)
	num("AESD_RECORDS_PER_CONN", &cfg.RecordsPerConn)
	num("AESD_IDLE_TIMEOUT_MS", &cfg.IdleTimeoutMs)
	num("AESD_REAP_INTERVAL_MS", &cfg.ReapIntervalMs)
	str("AESD_ECHO_MODE", &cfg.EchoMode)
	str("AESD_ADMIN_HTTP", &cfg.AdminHTTPAddr)
	str("AESD_ADMIN_GRPC", &cfg.AdminGRPCAddr)
	str("AESD_LOG_LEVEL", &cfg.LogLevel)
	str("AESD_LOG_FORMAT", &cfg.LogFormat)
	str("AESD_LOG_OUTPUT", &cfg.LogOutput)
}
