package repositories

import (
	"fmt"
	"strings"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
)

// TrackCache records every track a sync touches so later runs can resolve an
// ISRC from the local database before querying the destination catalog.
//
// Duplicate tracks are silently ignored (UNIQUE constraint violations).
type TrackCache struct {
	repo *TrackRepository
}

// NewTrackCache creates a new TrackCache backed by the given repository
func NewTrackCache(repo *TrackRepository) *TrackCache {
	return &TrackCache{repo: repo}
}

// Put caches a track seen on a service.
// Returns nil if the track already exists (deduplication).
// Only returns errors for actual failures (not constraint violations).
func (c *TrackCache) Put(service string, track models.Track) error {
	existing, err := c.repo.GetByServiceID(service, track.ID)
	if err == nil && existing != nil {
		return nil
	}

	persisted := models.NewPersistedTrack(0, service, track.ID, track)

	if err := c.repo.Create(persisted); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache track: %w", err)
	}

	return nil
}

// Lookup returns the cached track a service holds for an ISRC, or nil when
// the cache has no entry.
func (c *TrackCache) Lookup(service, isrc string) *models.Track {
	if isrc == "" {
		return nil
	}

	persisted, err := c.repo.GetByISRC(service, isrc)
	if err != nil || persisted == nil {
		return nil
	}

	track := persisted.Track()
	return &track
}
