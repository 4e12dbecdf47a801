// package matcher resolves source tracks against a destination catalog.
//
// Strategies run in decreasing order of confidence, short-circuiting on the
// first hit: an exact ISRC lookup, then an exact comparison of normalized
// artist and title, then fuzzy scoring over the candidate list. Each strategy
// issues at most one destination query; the fuzzy pass reuses the candidates
// already fetched when it can.
package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/services"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

const (
	// candidateLimit bounds how many search results a strategy considers.
	candidateLimit = 10

	// Default confidence assigned by each strategy.
	confidenceISRC        = 1.0
	confidenceArtistTitle = 0.9

	// Weights for the fuzzy composite score.
	titleWeight    = 0.5
	artistWeight   = 0.3
	durationWeight = 0.2

	// Beyond this duration gap the duration component scores zero.
	durationFloor = 30 * time.Second
)

// Config tunes the matching thresholds.
type Config struct {
	// FuzzyThreshold is the composite score a fuzzy candidate must exceed
	// to count as a match.
	FuzzyThreshold float64

	// DurationTolerance is the track length difference treated as equal.
	DurationTolerance time.Duration
}

// DefaultConfig mirrors the matcher defaults from the shipped configuration.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:    0.75,
		DurationTolerance: 3 * time.Second,
	}
}

// Matcher finds the destination catalog's version of a source track.
type Matcher struct {
	config Config
}

func New(config Config) *Matcher {
	if config.FuzzyThreshold <= 0 || config.FuzzyThreshold > 1 {
		config.FuzzyThreshold = DefaultConfig().FuzzyThreshold
	}
	if config.DurationTolerance <= 0 {
		config.DurationTolerance = DefaultConfig().DurationTolerance
	}
	return &Matcher{config: config}
}

// Match resolves source against the destination service, returning the
// strategy that produced the match and its confidence. A track no strategy
// can place comes back as unmatched, with ErrorReason set when a provider
// failure cut the search short.
func (m *Matcher) Match(ctx context.Context, source models.Track, dest services.Service) models.MatchResult {
	result := models.MatchResult{Source: source, Strategy: models.StrategyUnmatched}

	if source.ISRC != "" {
		found, err := m.matchByISRC(ctx, source, dest)
		if err != nil {
			if abort := m.recordError(&result, err); abort {
				return result
			}
		} else if found != nil {
			return matched(result, found, models.StrategyISRC, confidenceISRC)
		}
	}

	candidates, err := dest.SearchTracks(ctx, searchQuery(source), candidateLimit)
	if err != nil {
		m.recordError(&result, err)
		return result
	}

	if found := matchArtistTitle(source, candidates); found != nil {
		return matched(result, found, models.StrategyArtistTitle, confidenceArtistTitle)
	}

	if found, score := m.matchFuzzy(source, candidates); found != nil {
		return matched(result, found, models.StrategyFuzzy, score)
	}

	return result
}

// matched finalizes a hit, discarding any transient error noted by an
// earlier strategy.
func matched(result models.MatchResult, track *models.Track, strategy models.MatchStrategy, confidence float64) models.MatchResult {
	result.Destination = track
	result.Strategy = strategy
	result.Confidence = confidence
	result.ErrorReason = ""
	return result
}

// recordError stores the failure on the result and reports whether matching
// should stop. Permanent and data errors abort the track; transient and quota
// failures leave room for the next strategy.
func (m *Matcher) recordError(result *models.MatchResult, err error) bool {
	result.ErrorReason = err.Error()
	switch shared.KindOf(err) {
	case shared.KindPermanent, shared.KindDataError:
		return true
	default:
		return false
	}
}

func (m *Matcher) matchByISRC(ctx context.Context, source models.Track, dest services.Service) (*models.Track, error) {
	tracks, err := dest.SearchByISRC(ctx, source.ISRC)
	if err != nil {
		return nil, err
	}

	// Several catalog entries can carry the same ISRC (reissues, compilation
	// appearances). Prefer the one whose title and artist line up.
	var first *models.Track
	title, artist := Normalize(source.Title), Normalize(source.Artist)
	for _, track := range tracks {
		if track.ISRC != source.ISRC {
			continue
		}
		if first == nil {
			first = &track
		}
		if Normalize(track.Title) == title && Normalize(track.Artist) == artist {
			return &track, nil
		}
	}
	return first, nil
}

func searchQuery(source models.Track) string {
	return fmt.Sprintf("%s %s", source.Title, source.Artist)
}

func matchArtistTitle(source models.Track, candidates []models.Track) *models.Track {
	title := Normalize(source.Title)
	artist := Normalize(source.Artist)
	if title == "" || artist == "" {
		return nil
	}

	for _, candidate := range candidates {
		if Normalize(candidate.Title) == title && Normalize(candidate.Artist) == artist {
			return &candidate
		}
	}
	return nil
}

// matchFuzzy scores every candidate and returns the best one whose score
// strictly exceeds the threshold, along with its score.
func (m *Matcher) matchFuzzy(source models.Track, candidates []models.Track) (*models.Track, float64) {
	var best *models.Track
	var bestScore float64

	for i := range candidates {
		score := m.score(source, candidates[i])
		if score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}

	if best == nil || bestScore <= m.config.FuzzyThreshold {
		return nil, 0
	}
	return best, bestScore
}

func (m *Matcher) score(source, candidate models.Track) float64 {
	titleSim := similarity(Normalize(source.Title), Normalize(candidate.Title))
	artistSim := similarity(Normalize(source.Artist), Normalize(candidate.Artist))
	durationSim := m.durationCloseness(source.DurationMS, candidate.DurationMS)

	return titleWeight*titleSim + artistWeight*artistSim + durationWeight*durationSim
}

// similarity is a Levenshtein ratio in [0, 1].
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	distance := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

// durationCloseness scores 1.0 within the tolerance, decaying linearly to
// zero at durationFloor. An unknown duration on either side scores neutral.
func (m *Matcher) durationCloseness(sourceMS, candidateMS int) float64 {
	if sourceMS <= 0 || candidateMS <= 0 {
		return 0.5
	}

	gap := time.Duration(sourceMS-candidateMS) * time.Millisecond
	if gap < 0 {
		gap = -gap
	}
	if gap <= m.config.DurationTolerance {
		return 1
	}
	if gap >= durationFloor {
		return 0
	}

	span := float64(durationFloor - m.config.DurationTolerance)
	return 1 - float64(gap-m.config.DurationTolerance)/span
}
