// package formatter renders sync reports and playlist exports to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	"github.com/0xdx-au/spotify-apple-music-sync/internal/shared"
)

// ReportToCSV converts a sync task's results to CSV with one row per source track.
func ReportToCSV(task *models.SyncTask) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Source ID", "Title", "Artist", "Strategy", "Confidence", "Destination ID", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, res := range task.Results {
		destID := ""
		if res.Destination != nil {
			destID = res.Destination.ID
		}
		record := []string{
			res.Source.ID,
			res.Source.Title,
			res.Source.Artist,
			string(res.Strategy),
			strconv.FormatFloat(res.Confidence, 'f', 2, 64),
			destID,
			res.ErrorReason,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown converts a sync task to a Markdown report.
func ReportToMarkdown(task *models.SyncTask) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Sync Report: %s\n\n", task.SourcePlaylistName))

	buf.WriteString(fmt.Sprintf("**Status**: %s\n", task.Status))
	buf.WriteString(fmt.Sprintf("**Source**: %s (%s)\n", task.SourcePlaylistName, task.SourcePlaylistID))
	if task.DestPlaylistID != "" {
		buf.WriteString(fmt.Sprintf("**Destination**: %s (%s)\n", task.DestPlaylistName, task.DestPlaylistID))
	}
	buf.WriteString(fmt.Sprintf("**Matched**: %d/%d\n", task.MatchedTracks, task.TotalTracks))
	if task.FailedTracks > 0 {
		buf.WriteString(fmt.Sprintf("**Failed**: %d\n", task.FailedTracks))
	}
	if task.ErrorMessage != "" {
		buf.WriteString(fmt.Sprintf("**Error**: %s\n", task.ErrorMessage))
	}
	buf.WriteString("\n")

	if len(task.Results) > 0 {
		buf.WriteString("## Tracks\n\n")
		buf.WriteString("| # | Track | Strategy | Confidence | Result |\n")
		buf.WriteString("|---|-------|----------|------------|--------|\n")
		for i, res := range task.Results {
			outcome := "✓"
			if !res.Matched() {
				outcome = "✗"
				if res.ErrorReason != "" {
					outcome = "✗ " + res.ErrorReason
				}
			}
			buf.WriteString(fmt.Sprintf("| %d | %s - %s | %s | %.2f | %s |\n",
				i+1, res.Source.Artist, res.Source.Title, res.Strategy, res.Confidence, outcome))
		}
	}

	return buf.Bytes(), nil
}

// ReportToText converts a sync task to a plain text report.
func ReportToText(task *models.SyncTask) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Sync: %s -> %s\n", task.SourcePlaylistName, task.DestPlaylistName))
	buf.WriteString(fmt.Sprintf("Status: %s\n", task.Status))
	buf.WriteString(fmt.Sprintf("Matched: %d/%d\n", task.MatchedTracks, task.TotalTracks))
	if task.ErrorMessage != "" {
		buf.WriteString(fmt.Sprintf("Error: %s\n", task.ErrorMessage))
	}
	buf.WriteString("\n")

	for i, res := range task.Results {
		mark := "ok"
		if !res.Matched() {
			mark = "MISS"
		}
		buf.WriteString(fmt.Sprintf("%d. [%s] %s - %s\n", i+1, mark, res.Source.Artist, res.Source.Title))
	}

	return buf.Bytes(), nil
}

// ReportToJSON generates an indented JSON representation of the full task.
func ReportToJSON(task *models.SyncTask) ([]byte, error) {
	return shared.MarshalJSON(task, true)
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Artist, Album, Duration, ISRC
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "ISRC"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.DurationMS),
			track.ISRC,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", export.Playlist.Name))
	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", export.Playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Visibility: %s\n", shared.VisibilityString(export.Playlist.Public)))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Tracks)))

	for i, track := range export.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, shared.FormatDuration(track.DurationMS)))
	}

	return buf.Bytes(), nil
}

// WriteReport renders a sync task in the given format and writes it to path.
// Format is one of csv, markdown, txt, json. Path defaults to the task ID
// with a format-appropriate extension.
func WriteReport(task *models.SyncTask, format, path string) (string, error) {
	var (
		data []byte
		err  error
		ext  string
	)

	switch format {
	case "csv":
		data, err = ReportToCSV(task)
		ext = ".csv"
	case "markdown", "md":
		data, err = ReportToMarkdown(task)
		ext = ".md"
	case "txt", "text", "":
		data, err = ReportToText(task)
		ext = ".txt"
	case "json":
		data, err = ReportToJSON(task)
		ext = ".json"
	default:
		return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidFlag, format)
	}
	if err != nil {
		return "", err
	}

	if path == "" {
		path = task.TaskID + ext
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}
