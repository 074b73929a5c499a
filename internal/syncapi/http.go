// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package syncapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
	pkgerrors "github.com/linuxfoundation/lfx-v2-roster-sync-service/pkg/errors"
)

// actorIDHeader is the header the host is expected to set after it has
// already authenticated and authorized the caller. This service performs
// no authn/authz of its own: policy is the host's responsibility.
const actorIDHeader = "X-LFX-Actor-Id"

// NewRouter builds the Sync API's HTTP transport over svc.
func NewRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Route("/sync", func(r chi.Router) {
		r.Post("/preview", handlePreview(svc))
		r.Post("/start", handleStart(svc))
		r.Get("/status/{syncID}", handleStatus(svc))
		r.Post("/cancel/{syncID}", handleCancel(svc))
		r.Get("/ongoing", handleOngoing(svc))
	})

	return r
}

// runRequest is the shared body shape of preview and start.
type runRequest struct {
	Direction model.Direction `json:"direction"`
	Options   model.Options   `json:"options"`
}

func handlePreview(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get(actorIDHeader)

		var body runRequest
		if err := decodeJSONBody(r, &body); err != nil {
			writeError(w, pkgerrors.NewValidation("malformed request body", err))
			return
		}

		result, err := svc.Preview(r.Context(), actorID, body.Direction, body.Options)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleStart(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get(actorIDHeader)

		var body runRequest
		if err := decodeJSONBody(r, &body); err != nil {
			writeError(w, pkgerrors.NewValidation("malformed request body", err))
			return
		}

		syncID, err := svc.Start(r.Context(), actorID, body.Direction, body.Options)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"sync_id": syncID})
	}
}

func handleStatus(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		syncID := chi.URLParam(r, "syncID")
		job, err := svc.Status(r.Context(), syncID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func handleCancel(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		syncID := chi.URLParam(r, "syncID")
		if err := svc.Cancel(r.Context(), syncID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleOngoing(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get(actorIDHeader)
		if actorID == "" {
			writeError(w, pkgerrors.NewValidation("actor_id is required"))
			return
		}

		job, err := svc.Ongoing(r.Context(), actorID)
		if err != nil {
			writeError(w, err)
			return
		}
		if job == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode sync API response", "error", err)
	}
}

// errorResponse is the wire shape of every non-2xx Sync API response.
type errorResponse struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func writeError(w http.ResponseWriter, err error) {
	kind := pkgerrors.Kind(err)
	writeJSON(w, statusForKind(kind), errorResponse{
		Kind:      kind,
		Message:   err.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// statusForKind maps a pkgerrors.Kind() result to the HTTP status the
// Sync API reports it as.
func statusForKind(kind string) int {
	switch kind {
	case "ValidationError":
		return http.StatusBadRequest
	case "NotFound":
		return http.StatusNotFound
	case "ConflictError":
		return http.StatusConflict
	case "AuthError":
		return http.StatusUnauthorized
	case "RemoteError":
		return http.StatusBadGateway
	case "StoreError":
		return http.StatusInternalServerError
	case "CancelledError":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
