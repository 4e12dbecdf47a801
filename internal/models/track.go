package models

import (
	"fmt"
	"time"
)

// PersistedTrack is a database-backed cache entry for a track seen on a
// specific service. Cached tracks enable cross-service matching via ISRC
// without re-querying the provider.
type PersistedTrack struct {
	id        string
	sequence  int
	service   string
	serviceID string
	track     Track
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedTrack creates a cache entry for a track fetched from a service.
func NewPersistedTrack(sequence int, service, serviceID string, track Track) *PersistedTrack {
	now := time.Now()
	return &PersistedTrack{
		sequence:  sequence,
		service:   service,
		serviceID: serviceID,
		track:     track,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *PersistedTrack) ID() string           { return t.id }
func (t *PersistedTrack) SetID(id string)      { t.id = id }
func (t *PersistedTrack) Sequence() int        { return t.sequence }
func (t *PersistedTrack) Service() string      { return t.service }
func (t *PersistedTrack) ServiceID() string    { return t.serviceID }
func (t *PersistedTrack) Track() Track         { return t.track }
func (t *PersistedTrack) Title() string        { return t.track.Title }
func (t *PersistedTrack) Artist() string       { return t.track.Artist }
func (t *PersistedTrack) Album() string        { return t.track.Album }
func (t *PersistedTrack) DurationMS() int      { return t.track.DurationMS }
func (t *PersistedTrack) ISRC() string         { return t.track.ISRC }
func (t *PersistedTrack) CreatedAt() time.Time { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time { return t.deletedAt }

func (t *PersistedTrack) SetUpdatedAt(u time.Time)  { t.updatedAt = u }
func (t *PersistedTrack) SetDeletedAt(d *time.Time) { t.deletedAt = d }

// Validate checks required fields for persistence.
func (t *PersistedTrack) Validate() error {
	if t.service == "" {
		return fmt.Errorf("persisted track missing service")
	}
	if t.serviceID == "" {
		return fmt.Errorf("persisted track missing service id")
	}
	if t.track.Title == "" {
		return fmt.Errorf("persisted track missing title")
	}
	return nil
}
