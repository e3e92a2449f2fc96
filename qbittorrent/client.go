package qbittorrent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// API is the subset of the qBittorrent Web API the client relies on.
type API interface {
	LoginCtx(ctx context.Context) error
	GetTorrentsCtx(ctx context.Context, o qbittorrent.TorrentFilterOptions) ([]qbittorrent.Torrent, error)
	GetFilesInformationCtx(ctx context.Context, hash string) (*qbittorrent.TorrentFiles, error)
	DeleteTorrentsCtx(ctx context.Context, hashes []string, deleteFiles bool) error
}

// Client wraps the qBittorrent API client
type Client struct {
	client          API
	logger          zerolog.Logger
	fileConcurrency int
}

// NewClient creates a new qBittorrent client and verifies the credentials
func NewClient(ctx context.Context, url, username, password string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	api := qbittorrent.NewClient(qbittorrent.Config{
		Host:          url,
		Username:      username,
		Password:      password,
		BasicUser:     o.basicUser,
		BasicPass:     o.basicPass,
		TLSSkipVerify: o.skipVerify,
		Timeout:       int(o.timeout / time.Second),
	})

	if err := api.LoginCtx(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, url, err)
	}

	logger.Debug().Str("url", url).Msg("Connected to qBittorrent")

	c := NewClientWithAPI(api, logger)
	c.fileConcurrency = o.fileConcurrency
	return c, nil
}

// NewClientWithAPI creates a client around an existing API implementation
func NewClientWithAPI(api API, logger zerolog.Logger) *Client {
	return &Client{
		client:          api,
		logger:          logger,
		fileConcurrency: defaultOptions().fileConcurrency,
	}
}

// GetAllTorrents retrieves all torrents from qBittorrent
func (c *Client) GetAllTorrents(ctx context.Context) ([]*TorrentInfo, error) {
	torrents, err := c.client.GetTorrentsCtx(ctx, qbittorrent.TorrentFilterOptions{})
	if err != nil {
		return nil, &APIError{Op: "list torrents", Err: err}
	}

	c.logger.Debug().Msgf("Retrieved %d torrents from qBittorrent", len(torrents))

	results := make([]*TorrentInfo, 0, len(torrents))
	for _, t := range torrents {
		results = append(results, convertTorrent(t))
	}

	return results, nil
}

func convertTorrent(t qbittorrent.Torrent) *TorrentInfo {
	info := &TorrentInfo{
		Hash:        t.Hash,
		Name:        t.Name,
		Category:    t.Category,
		Tracker:     t.Tracker,
		TrackerHost: TrackerHostname(t.Tracker),
		SavePath:    t.SavePath,
		ContentPath: t.ContentPath,
		State:       string(t.State),
		Size:        t.TotalSize,
		Uploaded:    t.Uploaded,
		Ratio:       t.Ratio,
		SeedingTime: time.Duration(t.SeedingTime) * time.Second,
	}
	if info.Size <= 0 {
		info.Size = t.Size
	}
	if t.LastActivity > 0 {
		info.LastActivity = time.Unix(t.LastActivity, 0)
	}
	// qBittorrent reports -1 or 0 for torrents that never completed.
	if t.CompletionOn > 0 {
		info.CompletionOn = time.Unix(t.CompletionOn, 0)
	}
	if t.AddedOn > 0 {
		info.AddedOn = time.Unix(t.AddedOn, 0)
	}
	if t.Tags != "" {
		for _, tag := range strings.Split(t.Tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				info.Tags = append(info.Tags, tag)
			}
		}
	}
	return info
}

// GetTorrentFiles gets the list of files in a torrent
func (c *Client) GetTorrentFiles(ctx context.Context, hash string) ([]string, error) {
	files, err := c.client.GetFilesInformationCtx(ctx, hash)
	if err != nil {
		return nil, &APIError{Op: "list files of " + hash, Err: err}
	}

	var filePaths []string
	if files != nil {
		for _, f := range *files {
			filePaths = append(filePaths, f.Name)
		}
	}

	return filePaths, nil
}

// LoadFiles populates Files for every torrent. Requests run concurrently,
// each goroutine writing only to its own torrent.
func (c *Client) LoadFiles(ctx context.Context, torrents []*TorrentInfo) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fileConcurrency)

	for _, torrent := range torrents {
		g.Go(func() error {
			files, err := c.GetTorrentFiles(ctx, torrent.Hash)
			if err != nil {
				return err
			}
			torrent.Files = files
			return nil
		})
	}

	return g.Wait()
}

// DeleteTorrents removes torrents by hash, optionally with their data
func (c *Client) DeleteTorrents(ctx context.Context, hashes []string, deleteFiles bool) error {
	if len(hashes) == 0 {
		return nil
	}

	if err := c.client.DeleteTorrentsCtx(ctx, hashes, deleteFiles); err != nil {
		return &APIError{Op: fmt.Sprintf("delete %d torrents", len(hashes)), Err: err}
	}

	c.logger.Info().Int("count", len(hashes)).Bool("delete_files", deleteFiles).
		Msg("Deleted torrents")
	return nil
}
