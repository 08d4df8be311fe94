package main

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"scene2d.dev/catalyst/cache"
	"scene2d.dev/catalyst/cache/grpccache"
	"scene2d.dev/catalyst/client"
)

// Config describes one deployment target and the local cache setup.
//
// Example:
//
//	{
//	  "server": "https://peer.example.com",
//	  "cache_dir": "/var/cache/scene-deploy",
//	  "shared_cache": "127.0.0.1:7777"
//	}
type Config struct {
	// Server is the content server base URL.
	Server string `json:"server"`

	// CacheDir, when set, enables the local filesystem content cache.
	CacheDir string `json:"cache_dir,omitempty"`

	// SharedCache, when set, is the address of a scene-cached daemon
	// used as a fallback tier behind the local cache.
	SharedCache string `json:"shared_cache,omitempty"`

	// TimeoutSeconds bounds each server request. 0 means no bound.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Server == "" {
		return errors.New("config: server is required")
	}
	return nil
}

// openCache assembles the cache tiers the config asks for. The returned
// close function releases the shared-cache connection, if any.
func (c Config) openCache() (cache.CAS, func() error, error) {
	var tiers []cache.CAS
	closeFn := func() error { return nil }

	if c.CacheDir != "" {
		dir, err := cache.NewDir(c.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		tiers = append(tiers, dir)
	}
	if c.SharedCache != "" {
		remote, err := grpccache.Dial(c.SharedCache, grpccache.DialOptions{
			Timeout: 5 * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
		tiers = append(tiers, remote)
		closeFn = remote.Close
	}

	switch len(tiers) {
	case 0:
		return nil, closeFn, nil
	case 1:
		return tiers[0], closeFn, nil
	default:
		return cache.Multi{Tiers: tiers}, closeFn, nil
	}
}

func (c Config) newClient() (*client.Client, func() error, error) {
	cas, closeFn, err := c.openCache()
	if err != nil {
		return nil, nil, err
	}
	cl, err := client.New(c.Server, client.Options{
		Timeout: time.Duration(c.TimeoutSeconds) * time.Second,
		Cache:   cas,
	})
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return cl, closeFn, nil
}
