package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/services"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	tu "github.com/0xdx-au/spotify-apple-music-sync/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceTrack() models.Track {
	return models.Track{
		ID:         "src1",
		Title:      "Bad Guy",
		Artist:     "Billie Eilish",
		Album:      "When We All Fall Asleep, Where Do We Go?",
		DurationMS: 194088,
		ISRC:       "USUM71900764",
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Bad Guy", "bad guy"},
		{"strips diacritics", "Beyoncé", "beyonce"},
		{"drops parentheticals", "Bad Guy (with Justin Bieber)", "bad guy"},
		{"drops brackets", "One More Time [Radio Edit]", "one more time"},
		{"drops featuring suffix", "Lose Yourself feat. Dido", "lose yourself"},
		{"drops ft variant", "Numb ft. Jay-Z", "numb"},
		{"removes punctuation", "Don't Stop Me Now!", "don t stop me now"},
		{"collapses whitespace", "  So   Much    Space ", "so much space"},
		{"empty input", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.input))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("bad guy", "bad guy"))
	assert.Equal(t, 1.0, similarity("", ""))
	assert.Equal(t, 0.0, similarity("abc", "xyz"))
	assert.InDelta(t, 0.875, similarity("bad guys", "bad guy"), 0.001)
}

func TestMatcherMatch(t *testing.T) {
	ctx := context.Background()
	m := New(DefaultConfig())

	t.Run("exact ISRC wins with full confidence", func(t *testing.T) {
		source := sourceTrack()
		searched := false
		dest := &tu.MockService{
			SearchByISRCFn: func(ctx context.Context, isrc string) ([]models.Track, error) {
				require.Equal(t, source.ISRC, isrc)
				return []models.Track{{ID: "am1", Title: "bad guy", ISRC: source.ISRC}}, nil
			},
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				searched = true
				return nil, nil
			},
		}

		result := m.Match(ctx, source, dest)
		require.True(t, result.Matched())
		assert.Equal(t, models.StrategyISRC, result.Strategy)
		assert.Equal(t, 1.0, result.Confidence)
		assert.Equal(t, "am1", result.Destination.ID)
		assert.False(t, searched, "ISRC hit should not fall through to text search")
	})

	t.Run("ISRC lookup requires an exact ISRC in the results", func(t *testing.T) {
		source := sourceTrack()
		dest := &tu.MockService{
			SearchByISRCFn: func(ctx context.Context, isrc string) ([]models.Track, error) {
				return []models.Track{{ID: "am9", ISRC: "DIFFERENT00001"}}, nil
			},
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				return nil, nil
			},
		}

		result := m.Match(ctx, source, dest)
		assert.False(t, result.Matched())
	})

	t.Run("missing ISRC skips straight to text search", func(t *testing.T) {
		source := sourceTrack()
		source.ISRC = ""
		isrcCalled := false
		dest := &tu.MockService{
			SearchByISRCFn: func(ctx context.Context, isrc string) ([]models.Track, error) {
				isrcCalled = true
				return nil, nil
			},
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				assert.Equal(t, "Bad Guy Billie Eilish", query)
				return []models.Track{{ID: "am1", Title: "Bad Guy", Artist: "Billie Eilish"}}, nil
			},
		}

		result := m.Match(ctx, source, dest)
		require.True(t, result.Matched())
		assert.False(t, isrcCalled)
		assert.Equal(t, models.StrategyArtistTitle, result.Strategy)
		assert.Equal(t, 0.9, result.Confidence)
	})

	t.Run("normalized artist and title match ignores decorations", func(t *testing.T) {
		source := sourceTrack()
		source.ISRC = ""
		dest := &tu.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				return []models.Track{
					{ID: "wrong", Title: "Bad Guy Remix", Artist: "Someone Else"},
					{ID: "right", Title: "BAD GUY (Album Version)", Artist: "Billie Eilish"},
				}, nil
			},
		}

		result := m.Match(ctx, source, dest)
		require.True(t, result.Matched())
		assert.Equal(t, models.StrategyArtistTitle, result.Strategy)
		assert.Equal(t, "right", result.Destination.ID)
	})

	t.Run("fuzzy match accepts close candidates above the threshold", func(t *testing.T) {
		source := sourceTrack()
		source.ISRC = ""
		dest := &tu.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				return []models.Track{
					{ID: "close", Title: "Bad Guys", Artist: "Billie Eilish", DurationMS: 194500},
					{ID: "far", Title: "Good Girl", Artist: "Unknown Act", DurationMS: 120000},
				}, nil
			},
		}

		result := m.Match(ctx, source, dest)
		require.True(t, result.Matched())
		assert.Equal(t, models.StrategyFuzzy, result.Strategy)
		assert.Equal(t, "close", result.Destination.ID)
		assert.Greater(t, result.Confidence, m.config.FuzzyThreshold)
		assert.LessOrEqual(t, result.Confidence, 1.0)
	})

	t.Run("fuzzy match rejects a score exactly at the threshold", func(t *testing.T) {
		source := models.Track{Title: "Bad Guy", Artist: "Billie Eilish"}
		candidate := models.Track{ID: "edge", Title: "Bad Guy", Artist: "Billie Eilish"}

		// Pin the threshold to the candidate's own composite score so the
		// comparison lands exactly on the boundary.
		score := m.score(source, candidate)
		exact := New(Config{FuzzyThreshold: score, DurationTolerance: 3 * time.Second})
		found, _ := exact.matchFuzzy(source, []models.Track{candidate})
		assert.Nil(t, found)

		below := New(Config{FuzzyThreshold: score - 0.01, DurationTolerance: 3 * time.Second})
		found, got := below.matchFuzzy(source, []models.Track{candidate})
		require.NotNil(t, found)
		assert.Equal(t, score, got)
	})

	t.Run("fuzzy match rejects everything below the threshold", func(t *testing.T) {
		source := sourceTrack()
		source.ISRC = ""
		dest := &tu.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				return []models.Track{
					{ID: "far", Title: "Completely Different Song", Artist: "Another Band", DurationMS: 80000},
				}, nil
			},
		}

		result := m.Match(ctx, source, dest)
		assert.False(t, result.Matched())
		assert.Equal(t, models.StrategyUnmatched, result.Strategy)
		assert.Zero(t, result.Confidence)
	})

	t.Run("empty candidate list is unmatched", func(t *testing.T) {
		source := sourceTrack()
		source.ISRC = ""
		dest := &tu.MockService{}

		result := m.Match(ctx, source, dest)
		assert.False(t, result.Matched())
		assert.Empty(t, result.ErrorReason)
	})

	t.Run("permanent failure aborts the track", func(t *testing.T) {
		source := sourceTrack()
		searched := false
		dest := &tu.MockService{
			SearchByISRCFn: func(ctx context.Context, isrc string) ([]models.Track, error) {
				return nil, shared.NewProviderError("apple_music", shared.KindPermanent, 404, shared.ErrAPIRequest)
			},
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				searched = true
				return nil, nil
			},
		}

		result := m.Match(ctx, source, dest)
		assert.False(t, result.Matched())
		assert.Equal(t, models.StrategyUnmatched, result.Strategy)
		assert.NotEmpty(t, result.ErrorReason)
		assert.False(t, searched, "permanent failure should stop further strategies")
	})

	t.Run("transient ISRC failure falls through to text search", func(t *testing.T) {
		source := sourceTrack()
		dest := &tu.MockService{
			SearchByISRCFn: func(ctx context.Context, isrc string) ([]models.Track, error) {
				return nil, shared.NewProviderError("apple_music", shared.KindTransient, 503, shared.ErrAPIRequest)
			},
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				return []models.Track{{ID: "am1", Title: "Bad Guy", Artist: "Billie Eilish"}}, nil
			},
		}

		result := m.Match(ctx, source, dest)
		require.True(t, result.Matched())
		assert.Equal(t, models.StrategyArtistTitle, result.Strategy)
	})

	t.Run("text search failure surfaces the error reason", func(t *testing.T) {
		source := sourceTrack()
		source.ISRC = ""
		dest := &tu.MockService{
			SearchTracksFn: func(ctx context.Context, query string, limit int) ([]models.Track, error) {
				return nil, shared.NewProviderError("apple_music", shared.KindTransient, 503, shared.ErrAPIRequest)
			},
		}

		result := m.Match(ctx, source, dest)
		assert.False(t, result.Matched())
		assert.NotEmpty(t, result.ErrorReason)
	})
}

func TestDurationCloseness(t *testing.T) {
	m := New(Config{FuzzyThreshold: 0.75, DurationTolerance: 3 * time.Second})

	t.Run("within tolerance scores full", func(t *testing.T) {
		assert.Equal(t, 1.0, m.durationCloseness(194000, 196500))
	})

	t.Run("beyond the floor scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, m.durationCloseness(194000, 194000+31000))
	})

	t.Run("decays linearly in between", func(t *testing.T) {
		score := m.durationCloseness(194000, 194000+16500)
		assert.InDelta(t, 0.5, score, 0.01)
	})

	t.Run("unknown duration scores neutral", func(t *testing.T) {
		assert.Equal(t, 0.5, m.durationCloseness(0, 194000))
		assert.Equal(t, 0.5, m.durationCloseness(194000, 0))
	})
}

// Keep the provider contract honest: the mock must satisfy the interface.
var _ services.Service = (*tu.MockService)(nil)
