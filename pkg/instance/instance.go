package instance

import "os"

// EnvInstanceID overrides the identifier reported by GetID.
const EnvInstanceID = "BACKOFFICE_INSTANCE_ID"

// GetID names this process in lock owners and logs: the configured id, then
// the hostname, then "backoffice-0".
func GetID() string {
	if id := os.Getenv(EnvInstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "backoffice-0"
}
