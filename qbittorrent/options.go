package qbittorrent

import "time"

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	timeout         time.Duration
	basicUser       string
	basicPass       string
	skipVerify      bool
	fileConcurrency int
}

func defaultOptions() clientOptions {
	return clientOptions{
		timeout:         30 * time.Second,
		fileConcurrency: 8,
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithBasicAuth sets HTTP basic auth credentials for a reverse proxy in front of the WebUI.
func WithBasicAuth(user, pass string) Option {
	return func(o *clientOptions) {
		o.basicUser = user
		o.basicPass = pass
	}
}

// WithInsecureSkipVerify disables certificate verification.
// Use with caution and only for self-signed setups.
func WithInsecureSkipVerify() Option {
	return func(o *clientOptions) {
		o.skipVerify = true
	}
}

// WithFileConcurrency limits how many file-list requests run at once.
func WithFileConcurrency(n int) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.fileConcurrency = n
		}
	}
}
