package httpapi

import "time"

const (
	defaultMaxBodyBytes  int64 = 1 << 20
	defaultMaxImageBytes int64 = 10 << 20
)

// maxBodyBytes caps JSON request bodies on classification routes.
var maxBodyBytes = defaultMaxBodyBytes

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
		return
	}
	maxBodyBytes = n
}

// maxImageBytes caps multipart uploads on */classify/image.
var maxImageBytes = defaultMaxImageBytes

// SetMaxImageBytes sets the upload limit for image classification.
func SetMaxImageBytes(n int64) {
	if n <= 0 {
		maxImageBytes = defaultMaxImageBytes
		return
	}
	maxImageBytes = n
}

// requestTimeout bounds how long a classification request may wait for its
// actor. Zero means no additional timeout beyond server/connection timeouts.
var requestTimeout time.Duration

// SetRequestTimeout sets the classification timeout (0 disables).
func SetRequestTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	requestTimeout = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
