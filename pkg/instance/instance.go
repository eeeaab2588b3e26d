package instance

import (
	"fmt"
	"os"
)

// GetID identifies this process in logs and lock values. WORKER_ID wins,
// then the hostname, then a pid-based fallback.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	return fmt.Sprintf("worker-%d", os.Getpid())
}
