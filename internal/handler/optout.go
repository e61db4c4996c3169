package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rundownapp/rundown/internal/service"
	"github.com/rundownapp/rundown/internal/ui"
	"github.com/rundownapp/rundown/internal/ui/pages"
)

type optOuter interface {
	OptOut(ctx context.Context, token string) (*service.OptOutResult, error)
}

type OptOutHandler struct {
	contacts     optOuter
	appName      string
	supportEmail string
}

func NewOptOutHandler(contacts optOuter, appName, supportEmail string) *OptOutHandler {
	return &OptOutHandler{
		contacts:     contacts,
		appName:      appName,
		supportEmail: supportEmail,
	}
}

// OptOut always answers 200 with a page, whatever happened to the token.
func (h *OptOutHandler) OptOut(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	if token == "" {
		h.render(w, r, "Missing link", "This opt-out link is invalid. Please contact support if you need help.", false)
		return
	}

	result, err := h.contacts.OptOut(r.Context(), token)
	if err != nil {
		slog.Error("opt-out failed", "error", err)
		h.render(w, r, "Something went wrong", "We could not process your request. Please try the link again in a few minutes.", false)
		return
	}

	switch result.Status {
	case service.OptOutStatusOptedOut:
		h.render(w, r, "You're all set", "We will no longer send you accountability updates. Thanks for supporting your buddy.", true)
	case service.OptOutStatusAlreadyOptedOut:
		h.render(w, r, "Already opted out", "You have already removed yourself from these updates. No further action is needed.", true)
	default:
		h.render(w, r, "Link expired", "We could not find this contact. The link may have already been used.", false)
	}
}

func (h *OptOutHandler) render(w http.ResponseWriter, r *http.Request, heading, body string, success bool) {
	ui.Render(w, r, pages.OptOut(pages.OptOutProps{
		AppName:      h.appName,
		SupportEmail: h.supportEmail,
		Heading:      heading,
		Body:         body,
		Success:      success,
	}))
}
