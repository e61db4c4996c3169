package routes

import (
	"net/http"
	"time"

	"github.com/rundownapp/rundown/internal/app"
	"github.com/rundownapp/rundown/internal/handler"
	"github.com/rundownapp/rundown/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	optOut := handler.NewOptOutHandler(app.ContactService, app.Cfg.AppName, app.Cfg.SupportEmail)
	jobs := handler.NewJobsHandler(app.SchedulerService, app.DeliveryService, app.SyncService, app.ReportService)
	settings := handler.NewSettingsHandler(app.GoalService, app.ContactService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Health)

	// Opt-out links from invite emails (rate limited per IP)
	optOutLimit := middleware.RateLimit(30, time.Minute)
	mux.Handle("GET /buddy/opt-out", optOutLimit(http.HandlerFunc(optOut.OptOut)))
	mux.Handle("GET /buddy/opt-out/{token}", optOutLimit(http.HandlerFunc(optOut.OptOut)))

	// ============================================================================
	// JOB SECRET ROUTES
	// ============================================================================

	bearer := middleware.RequireBearer(app.Cfg.JobSecret)

	// Job triggers
	mux.Handle("POST /jobs/schedule", bearer(http.HandlerFunc(jobs.Schedule)))
	mux.Handle("POST /jobs/deliver", bearer(http.HandlerFunc(jobs.Deliver)))
	mux.Handle("POST /jobs/sync", bearer(http.HandlerFunc(jobs.Sync)))

	// Internal settings API
	mux.Handle("PUT /internal/users/{userID}/goal", bearer(http.HandlerFunc(settings.UpdateGoal)))
	mux.Handle("GET /internal/users/{userID}/goal/history", bearer(http.HandlerFunc(settings.GoalHistory)))
	mux.Handle("GET /internal/users/{userID}/contacts", bearer(http.HandlerFunc(settings.ListContacts)))
	mux.Handle("POST /internal/users/{userID}/contacts", bearer(http.HandlerFunc(settings.AddContact)))
	mux.Handle("DELETE /internal/users/{userID}/contacts/{contactID}", bearer(http.HandlerFunc(settings.RemoveContact)))
	mux.Handle("POST /internal/contacts/{contactID}/invite", bearer(http.HandlerFunc(settings.InviteContact)))

	return middleware.Chain(mux, middleware.RequestLogging)
}
