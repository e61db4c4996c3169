package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rundownapp/rundown/internal/ctxkeys"
	"github.com/rundownapp/rundown/internal/service"
	"github.com/rundownapp/rundown/internal/ui"
)

type slotScheduler interface {
	RunSlot(ctx context.Context, slot service.Slot, now time.Time) (*service.ScheduleResult, error)
}

type queueDeliverer interface {
	Run(ctx context.Context, now time.Time) (*service.RunSummary, error)
}

type activitySyncer interface {
	SyncAll(ctx context.Context) (*service.SyncSummary, error)
}

type reportArchiver interface {
	Archive(ctx context.Context, job string, summary any) string
}

// JobsHandler exposes the batch jobs to an external trigger such as a platform cron.
type JobsHandler struct {
	scheduler slotScheduler
	delivery  queueDeliverer
	sync      activitySyncer
	reports   reportArchiver
	now       func() time.Time
}

func NewJobsHandler(scheduler slotScheduler, delivery queueDeliverer, sync activitySyncer, reports reportArchiver) *JobsHandler {
	return &JobsHandler{
		scheduler: scheduler,
		delivery:  delivery,
		sync:      sync,
		reports:   reports,
		now:       time.Now,
	}
}

type jobResponse struct {
	Job       string `json:"job"`
	ReportKey string `json:"report_key,omitempty"`
	Summary   any    `json:"summary"`
}

func (h *JobsHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	slot, err := service.ParseSlot(r.URL.Query().Get("slot"))
	if err != nil {
		ui.JSONError(w, http.StatusBadRequest, "slot must be one of morning, afternoon, evening")
		return
	}

	result, err := h.scheduler.RunSlot(r.Context(), slot, h.now())
	if err != nil {
		slog.Error("schedule job failed", "error", err, "slot", slot, "request_id", ctxkeys.RequestID(r.Context()))
		ui.JSONError(w, http.StatusInternalServerError, "schedule failed")
		return
	}
	h.respond(w, r, "schedule", result)
}

func (h *JobsHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	summary, err := h.delivery.Run(r.Context(), h.now())
	if err != nil {
		slog.Error("deliver job failed", "error", err, "request_id", ctxkeys.RequestID(r.Context()))
		ui.JSONError(w, http.StatusInternalServerError, "delivery failed")
		return
	}
	h.respond(w, r, "deliver", summary)
}

func (h *JobsHandler) Sync(w http.ResponseWriter, r *http.Request) {
	summary, err := h.sync.SyncAll(r.Context())
	if err != nil {
		slog.Error("sync job failed", "error", err, "request_id", ctxkeys.RequestID(r.Context()))
		ui.JSONError(w, http.StatusInternalServerError, "sync failed")
		return
	}
	h.respond(w, r, "sync", summary)
}

func (h *JobsHandler) respond(w http.ResponseWriter, r *http.Request, job string, summary any) {
	key := h.reports.Archive(r.Context(), job, summary)
	slog.Info("job finished", "job", job, "report_key", key, "request_id", ctxkeys.RequestID(r.Context()))
	ui.JSON(w, http.StatusOK, jobResponse{Job: job, ReportKey: key, Summary: summary})
}
