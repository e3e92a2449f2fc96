package qbittorrent

import (
	"errors"
	"fmt"
)

// Common errors returned by the qBittorrent client.
var (
	// ErrConnectionFailed is returned when connection or authentication to qBittorrent fails.
	ErrConnectionFailed = errors.New("connection to qBittorrent failed")
)

// APIError wraps a failed qBittorrent Web API call.
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("qbittorrent %s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
