package qbittorrent

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// TorrentInfo contains information about a torrent
type TorrentInfo struct {
	Hash         string
	Name         string
	Category     string
	Tracker      string
	TrackerHost  string
	SavePath     string
	ContentPath  string
	State        string
	Size         int64
	Uploaded     int64
	Ratio        float64
	SeedingTime  time.Duration
	LastActivity time.Time
	CompletionOn time.Time
	AddedOn      time.Time
	Tags         []string
	// Files are relative to SavePath, as reported by qBittorrent.
	Files []string
}

// IsComplete reports whether the torrent finished downloading
func (t *TorrentInfo) IsComplete() bool {
	return !t.CompletionOn.IsZero()
}

// GetFullPath returns the full path to the torrent content
func (t *TorrentInfo) GetFullPath() string {
	if t.ContentPath != "" {
		return t.ContentPath
	}
	return filepath.Join(t.SavePath, t.Name)
}

// OwnedPaths returns every path on disk the torrent claims: its save path,
// its content root and each of its files. Paths are cleaned.
func (t *TorrentInfo) OwnedPaths() []string {
	paths := make([]string, 0, len(t.Files)+2)
	if t.SavePath != "" {
		paths = append(paths, filepath.Clean(t.SavePath))
	}
	paths = append(paths, filepath.Clean(t.GetFullPath()))
	for _, f := range t.Files {
		paths = append(paths, filepath.Join(t.SavePath, filepath.FromSlash(f)))
	}
	return paths
}

// TrackerHostname extracts the lowercase hostname from a tracker announce URL
func TrackerHostname(tracker string) string {
	if tracker == "" {
		return ""
	}
	u, err := url.Parse(tracker)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
