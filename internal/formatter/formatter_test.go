package formatter

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0xdx-au/spotify-apple-music-sync/internal/models"
	th "github.com/0xdx-au/spotify-apple-music-sync/internal/testing"
)

func reportTask() *models.SyncTask {
	dest := models.Track{ID: "am1", Title: "Bad Guy", Artist: "Billie Eilish"}
	task := models.NewSyncTask("u1", "PL1")
	task.SetID("task-123")
	task.SourcePlaylistName = "Road Trip"
	task.DestPlaylistID = "am_pl"
	task.DestPlaylistName = "Road Trip"
	task.TotalTracks = 2
	task.Start()
	task.RecordResult(models.MatchResult{
		Source:      models.Track{ID: "sp1", Title: "Bad Guy", Artist: "Billie Eilish"},
		Destination: &dest,
		Strategy:    models.StrategyISRC,
		Confidence:  1.0,
	})
	task.RecordResult(models.MatchResult{
		Source:      models.Track{ID: "sp2", Title: "Rare Demo", Artist: "Nobody"},
		Strategy:    models.StrategyUnmatched,
		ErrorReason: "no candidates",
	})
	task.Complete()
	return task
}

func TestReportToCSV(t *testing.T) {
	data, err := ReportToCSV(reportTask())
	if err != nil {
		t.Fatalf("failed to generate CSV: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("generated CSV is invalid: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[1][3] != "exact_isrc" || records[1][5] != "am1" {
		t.Errorf("matched row incorrect: %v", records[1])
	}
	if records[2][5] != "" || records[2][6] != "no candidates" {
		t.Errorf("unmatched row incorrect: %v", records[2])
	}
}

func TestReportToMarkdown(t *testing.T) {
	data, err := ReportToMarkdown(reportTask())
	if err != nil {
		t.Fatalf("failed to generate Markdown: %v", err)
	}
	md := string(data)

	for _, want := range []string{
		"# Sync Report: Road Trip",
		"**Status**: partial",
		"**Matched**: 1/2",
		"| 1 | Billie Eilish - Bad Guy | exact_isrc | 1.00 | ✓ |",
		"✗ no candidates",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestReportToText(t *testing.T) {
	data, err := ReportToText(reportTask())
	if err != nil {
		t.Fatalf("failed to generate text: %v", err)
	}
	text := string(data)

	if !strings.Contains(text, "Status: partial") {
		t.Errorf("text missing status:\n%s", text)
	}
	if !strings.Contains(text, "1. [ok] Billie Eilish - Bad Guy") {
		t.Errorf("text missing matched row:\n%s", text)
	}
	if !strings.Contains(text, "2. [MISS] Nobody - Rare Demo") {
		t.Errorf("text missing unmatched row:\n%s", text)
	}
}

func TestExportToCSV(t *testing.T) {
	export := &models.PlaylistExport{
		Playlist: models.Playlist{ID: "PL1", Name: "Road Trip"},
		Tracks: []models.Track{
			{ID: "sp1", Title: "Bad Guy", Artist: "Billie Eilish", Album: "WWAFA", DurationMS: 194088, ISRC: "USUM71900764"},
		},
	}

	data, err := ExportToCSV(export)
	if err != nil {
		t.Fatalf("failed to generate CSV: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("generated CSV is invalid: %v", err)
	}
	if len(records) != 2 || records[1][4] != "194088" {
		t.Errorf("unexpected CSV rows: %v", records)
	}
}

func TestWriteReport(t *testing.T) {
	task := reportTask()

	t.Run("writes each format", func(t *testing.T) {
		dir := t.TempDir()
		for _, format := range []string{"csv", "markdown", "txt", "json"} {
			path := filepath.Join(dir, "report_"+format)
			written, err := WriteReport(task, format, path)
			if err != nil {
				t.Fatalf("failed to write %s report: %v", format, err)
			}
			th.AssertFileExists(t, written)
			if content := th.MustReadFile(t, written); content == "" {
				t.Errorf("empty %s report", format)
			}
		}
	})

	t.Run("defaults the path to the task ID", func(t *testing.T) {
		t.Chdir(t.TempDir())

		written, err := WriteReport(task, "txt", "")
		if err != nil {
			t.Fatalf("failed to write report: %v", err)
		}
		if written != "task-123.txt" {
			t.Errorf("unexpected default path %s", written)
		}
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		if _, err := WriteReport(task, "yaml", ""); err == nil {
			t.Error("expected error for unknown format")
		}
	})
}
