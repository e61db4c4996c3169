package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryArchive struct {
	objects map[string]string
	err     error
}

func (a *memoryArchive) Save(_ context.Context, key, contentType string, body io.Reader) error {
	if a.err != nil {
		return a.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if a.objects == nil {
		a.objects = map[string]string{}
	}
	a.objects[key] = contentType + "|" + string(b)
	return nil
}

func TestReportArchive(t *testing.T) {
	archive := &memoryArchive{}
	svc := NewReportService(archive)
	svc.now = func() time.Time { return wednesday }

	key := svc.Archive(context.Background(), "deliver", &RunSummary{Claimed: 2, Sent: 1, Skipped: 1})
	require.True(t, strings.HasPrefix(key, "reports/deliver/2024-04-03/"), key)
	assert.True(t, strings.HasSuffix(key, ".json"))

	stored, ok := archive.objects[key]
	require.True(t, ok)
	contentType, body, _ := strings.Cut(stored, "|")
	assert.Equal(t, "application/json", contentType)

	var report struct {
		RunID   string         `json:"run_id"`
		Job     string         `json:"job"`
		Summary map[string]int `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &report))
	assert.Equal(t, "deliver", report.Job)
	assert.Equal(t, 2, report.Summary["claimed"])
	assert.Equal(t, 1, report.Summary["sent"])
	assert.Contains(t, key, report.RunID)
}

func TestReportArchiveFailureIsSwallowed(t *testing.T) {
	svc := NewReportService(&memoryArchive{err: errors.New("bucket gone")})
	assert.Empty(t, svc.Archive(context.Background(), "sync", &SyncSummary{Users: 1}))

	assert.NotEmpty(t, NewReportService(nil).Archive(context.Background(), "sync", &SyncSummary{}))
}
