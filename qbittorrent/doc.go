// Package qbittorrent provides a client for interacting with the qBittorrent Web API.
//
// This package wraps the autobrr/go-qbittorrent library to provide a higher-level
// interface tailored for qbitprune: a flat torrent model carrying the seeding
// and activity timestamps retention rules are evaluated against, concurrent
// file-list loading, and batch deletion.
//
// # Usage
//
//	client, err := qbittorrent.NewClient(ctx, url, username, password, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	torrents, err := client.GetAllTorrents(ctx)
//	if err := client.LoadFiles(ctx, torrents); err != nil {
//	    // handle
//	}
//
//	err = client.DeleteTorrents(ctx, []string{hash}, false)
package qbittorrent
