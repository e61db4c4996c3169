package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rundownapp/rundown/internal/model"
	"github.com/rundownapp/rundown/internal/repository"
	"github.com/rundownapp/rundown/internal/service"
	"github.com/rundownapp/rundown/internal/ui"
)

type goalLedger interface {
	RecordGoalChange(ctx context.Context, userID string, input service.GoalInput) (*model.Goal, error)
	History(ctx context.Context, userID string) ([]*model.GoalHistory, error)
}

type contactManager interface {
	Add(ctx context.Context, userID string, input service.ContactInput) (*model.Contact, error)
	Remove(ctx context.Context, userID, contactID string) error
	List(ctx context.Context, userID string) ([]*model.Contact, error)
	Invite(ctx context.Context, contactID string) error
}

// SettingsHandler is the internal API the app backend uses to manage goals and contacts.
type SettingsHandler struct {
	goals    goalLedger
	contacts contactManager
}

func NewSettingsHandler(goals goalLedger, contacts contactManager) *SettingsHandler {
	return &SettingsHandler{goals: goals, contacts: contacts}
}

const maxBodyBytes = 64 << 10

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ui.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *SettingsHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var input service.GoalInput
	if !decodeJSON(w, r, &input) {
		return
	}

	goal, err := h.goals.RecordGoalChange(r.Context(), userID, input)
	switch {
	case errors.Is(err, service.ErrInvalidGoal):
		ui.JSONError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, repository.ErrUserNotFound):
		ui.JSONError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		slog.Error("failed to update goal", "error", err, "user_id", userID)
		ui.JSONError(w, http.StatusInternalServerError, "failed to update goal")
		return
	}

	ui.JSON(w, http.StatusOK, goal)
}

func (h *SettingsHandler) GoalHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	history, err := h.goals.History(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load goal history", "error", err, "user_id", userID)
		ui.JSONError(w, http.StatusInternalServerError, "failed to load goal history")
		return
	}
	ui.JSON(w, http.StatusOK, history)
}

func (h *SettingsHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	contacts, err := h.contacts.List(r.Context(), userID)
	if err != nil {
		slog.Error("failed to list contacts", "error", err, "user_id", userID)
		ui.JSONError(w, http.StatusInternalServerError, "failed to list contacts")
		return
	}
	ui.JSON(w, http.StatusOK, contacts)
}

func (h *SettingsHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	var input service.ContactInput
	if !decodeJSON(w, r, &input) {
		return
	}

	contact, err := h.contacts.Add(r.Context(), userID, input)
	switch {
	case errors.Is(err, service.ErrInvalidContact):
		ui.JSONError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, service.ErrContactLimitReached):
		ui.JSONError(w, http.StatusConflict, "a user can have at most 5 active contacts")
		return
	case errors.Is(err, service.ErrContactOptedOut):
		ui.JSONError(w, http.StatusConflict, "this contact opted out and cannot be re-added")
		return
	case errors.Is(err, repository.ErrUserNotFound):
		ui.JSONError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		slog.Error("failed to add contact", "error", err, "user_id", userID)
		ui.JSONError(w, http.StatusInternalServerError, "failed to add contact")
		return
	}

	ui.JSON(w, http.StatusCreated, contact)
}

func (h *SettingsHandler) RemoveContact(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	contactID := r.PathValue("contactID")

	err := h.contacts.Remove(r.Context(), userID, contactID)
	if errors.Is(err, repository.ErrContactNotFound) {
		ui.JSONError(w, http.StatusNotFound, "contact not found")
		return
	}
	if err != nil {
		slog.Error("failed to remove contact", "error", err, "user_id", userID, "contact_id", contactID)
		ui.JSONError(w, http.StatusInternalServerError, "failed to remove contact")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SettingsHandler) InviteContact(w http.ResponseWriter, r *http.Request) {
	contactID := r.PathValue("contactID")

	err := h.contacts.Invite(r.Context(), contactID)
	switch {
	case errors.Is(err, repository.ErrContactNotFound):
		ui.JSONError(w, http.StatusNotFound, "contact not found")
		return
	case errors.Is(err, service.ErrContactOptedOut):
		ui.JSONError(w, http.StatusConflict, "contact has already opted out")
		return
	case errors.Is(err, service.ErrContactNoEmail):
		ui.JSONError(w, http.StatusBadRequest, "contact has no email address")
		return
	case err != nil:
		slog.Error("failed to invite contact", "error", err, "contact_id", contactID)
		ui.JSONError(w, http.StatusInternalServerError, "failed to send invite")
		return
	}
	ui.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
