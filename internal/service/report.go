package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rundownapp/rundown/internal/storage"
)

// ReportService archives job run summaries as JSON.
type ReportService struct {
	archive storage.Archive
	now     func() time.Time
}

func NewReportService(archive storage.Archive) *ReportService {
	if archive == nil {
		archive = storage.NopArchive{}
	}
	return &ReportService{archive: archive, now: time.Now}
}

type runReport struct {
	RunID      string    `json:"run_id"`
	Job        string    `json:"job"`
	FinishedAt time.Time `json:"finished_at"`
	Summary    any       `json:"summary"`
}

// Archive uploads the summary to reports/{job}/{YYYY-MM-DD}/{runID}.json and returns the key.
// Upload failures are logged and never fail the run.
func (s *ReportService) Archive(ctx context.Context, job string, summary any) string {
	now := s.now().UTC()
	report := runReport{RunID: uuid.New().String(), Job: job, FinishedAt: now, Summary: summary}
	key := fmt.Sprintf("reports/%s/%s/%s.json", job, now.Format(time.DateOnly), report.RunID)

	body, err := json.Marshal(report)
	if err != nil {
		slog.Error("failed to encode run report", "error", err, "job", job)
		return ""
	}
	if err := s.archive.Save(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		slog.Error("failed to archive run report", "error", err, "job", job, "key", key)
		return ""
	}
	return key
}
