package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "run-1", "go concurrency", "golang concurrency tutorial")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, run.Status)
	require.False(t, run.CreatedAt.IsZero())

	require.NoError(t, s.AddVideo(ctx, "run-1", VideoRow{
		VideoID: "dQw4w9WgXcQ", Title: "Good", Channel: "A",
		URL: "https://example.com/1", TranscriptPath: "/tmp/good.md",
	}))
	require.NoError(t, s.AddVideo(ctx, "run-1", VideoRow{
		VideoID: "abcdefghijk", Title: "Bad", Channel: "B",
		URL: "https://example.com/2", SkipReason: "no_captions",
	}))

	require.NoError(t, s.FinishRun(ctx, "run-1", StatusCompleted, 1, 1, "/tmp/report.md"))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)
	require.Equal(t, 1, got.ScrapedCount)
	require.Equal(t, 1, got.SkippedCount)
	require.Equal(t, "/tmp/report.md", got.ReportPath)

	videos, err := s.Videos(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, videos, 2)
	require.Equal(t, "/tmp/good.md", videos[0].TranscriptPath)
	require.Empty(t, videos[0].SkipReason)
	require.Equal(t, "no_captions", videos[1].SkipReason)
	require.Empty(t, videos[1].TranscriptPath)
}

func TestGetRunMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetRun(context.Background(), "nope")
	require.Error(t, err)
}

func TestFinishRunMissing(t *testing.T) {
	s := openTestStore(t)
	err := s.FinishRun(context.Background(), "nope", StatusFailed, 0, 0, "")
	require.Error(t, err)
}

func TestRecentRunsAndTopics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, r := range []struct{ id, topic string }{
		{"run-1", "go concurrency"},
		{"run-2", "rust async"},
		{"run-3", "go concurrency"},
	} {
		_, err := s.CreateRun(ctx, r.id, r.topic, r.topic)
		require.NoError(t, err)
	}

	runs, err := s.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-3", runs[0].ID)
	require.Equal(t, "run-2", runs[1].ID)

	topics, err := s.RecentTopics(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"go concurrency", "rust async"}, topics)
}

func TestReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "run-1", "topic", "query")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	run, err := s2.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, "topic", run.Topic)
}

func TestSchemaVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("UPDATE schema_version SET version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.ErrorIs(t, err, ErrSchemaMismatch)
}
