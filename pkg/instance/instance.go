package instance

import "os"

// GetID returns the worker instance identifier used in log fields.
func GetID() string {
	if id := os.Getenv("AFYAKART_WORKER_ID"); id != "" {
		return id
	}
	return "worker-0"
}
