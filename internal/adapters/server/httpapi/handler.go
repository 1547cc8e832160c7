// Package httpapi provides the REST HTTP adapter for the server surfaces.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hylla/ctrain/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size; attachments travel base64-encoded.
const maxRequestBodyBytes int64 = 16 << 20

// Actor attribution headers for requests without a JSON body.
const (
	headerActorID   = "X-Actor-ID"
	headerActorType = "X-Actor-Type"
)

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	service common.TrainingService
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type computeCreditsRequest struct {
	Activity string  `json:"activity"`
	Value    float64 `json:"value"`
}

// NewHandler constructs one HTTP API adapter over the training service.
func NewHandler(service common.TrainingService) *Handler {
	return &Handler{service: service}
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "training service is not configured",
		})
		return
	}

	path := normalizePath(r.URL.Path)
	switch path {
	case "catalog":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleCatalog(w, r)
	case "credits/compute":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleComputeCredits(w, r)
	case "goal":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleGoal(w, r)
	case "form":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleGetForm(w, r)
	case "form/profile":
		if r.Method != http.MethodPut && r.Method != http.MethodPatch {
			writeMethodNotAllowed(w, http.MethodPut, http.MethodPatch)
			return
		}
		h.handleSetProfile(w, r)
	case "progress":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleProgress(w, r)
	case "activities":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleAddActivity(w, r)
	case "sinks":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w, http.MethodGet)
			return
		}
		h.handleListSinks(w, r)
	case "submissions":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleSubmit(w, r)
	default:
		h.routeActivity(w, r, path)
	}
}

// routeActivity serves `/activities/{id}` and `/activities/{id}/attachments`.
func (h *Handler) routeActivity(w http.ResponseWriter, r *http.Request, path string) {
	id, sub, ok := resolveActivityPath(path)
	if !ok {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
		return
	}
	switch sub {
	case "":
		switch r.Method {
		case http.MethodPatch:
			h.handleUpdateActivity(w, r, id)
		case http.MethodDelete:
			h.handleRemoveActivity(w, r, id)
		default:
			writeMethodNotAllowed(w, http.MethodPatch, http.MethodDelete)
		}
	case "attachments":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, http.MethodPost)
			return
		}
		h.handleAttachFile(w, r, id)
	default:
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	}
}

// handleCatalog serves GET `/catalog`.
func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.Catalog(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, catalog)
}

// handleComputeCredits serves POST `/credits/compute`.
func (h *Handler) handleComputeCredits(w http.ResponseWriter, r *http.Request) {
	var req computeCreditsRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	quote, err := h.service.ComputeCredits(r.Context(), req.Activity, req.Value)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// handleGoal serves GET `/goal?qualification=`.
func (h *Handler) handleGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.service.ResolveGoal(r.Context(), r.URL.Query().Get("qualification"))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// handleGetForm serves GET `/form`.
func (h *Handler) handleGetForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.service.GetForm(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// handleProgress serves GET `/progress`.
func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.GetProgress(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// handleSetProfile serves PUT `/form/profile`.
func (h *Handler) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	var req common.SetProfileRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.Actor = actorFromRequest(r, req.Actor)
	profile, err := h.service.SetProfile(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleAddActivity serves POST `/activities`.
func (h *Handler) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Actor common.Actor `json:"actor"`
	}
	if err := decodeOptionalJSONBody(r.Context(), w, r, &payload); err != nil {
		writeErrorFrom(w, err)
		return
	}
	rec, err := h.service.AddActivity(r.Context(), actorFromRequest(r, payload.Actor))
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleUpdateActivity serves PATCH `/activities/{id}`.
func (h *Handler) handleUpdateActivity(w http.ResponseWriter, r *http.Request, id string) {
	var req common.UpdateActivityRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.ID = id
	req.Actor = actorFromRequest(r, req.Actor)
	rec, err := h.service.UpdateActivity(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleRemoveActivity serves DELETE `/activities/{id}`.
func (h *Handler) handleRemoveActivity(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.service.RemoveActivity(r.Context(), id, actorFromRequest(r, common.Actor{})); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAttachFile serves POST `/activities/{id}/attachments`.
func (h *Handler) handleAttachFile(w http.ResponseWriter, r *http.Request, id string) {
	var req common.AttachFileRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.RecordID = id
	req.Actor = actorFromRequest(r, req.Actor)
	rec, err := h.service.AttachFile(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleListSinks serves GET `/sinks`.
func (h *Handler) handleListSinks(w http.ResponseWriter, r *http.Request) {
	sinks, err := h.service.ListSinks(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sinks": sinks,
	})
}

// handleSubmit serves POST `/submissions`.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req common.SubmitRequest
	if err := decodeOptionalJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	req.Actor = actorFromRequest(r, req.Actor)
	resp, err := h.service.Submit(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// actorFromRequest prefers body attribution and falls back to headers.
func actorFromRequest(r *http.Request, body common.Actor) common.Actor {
	if strings.TrimSpace(body.ActorID) != "" {
		return body
	}
	return common.Actor{
		ActorID:   strings.TrimSpace(r.Header.Get(headerActorID)),
		ActorType: strings.TrimSpace(r.Header.Get(headerActorType)),
	}
}

// resolveActivityPath parses `activities/{id}[/{sub}]`.
func resolveActivityPath(path string) (string, string, bool) {
	const prefix = "activities/"
	if !strings.HasPrefix(path, prefix) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(path, prefix), "/")
	if len(parts) > 2 {
		return "", "", false
	}
	id := strings.TrimSpace(parts[0])
	if id == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		return id, parts[1], true
	}
	return id, "", true
}

// normalizePath canonicalizes one request path for route matching.
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, "/")
	return path
}

// writeErrorFrom maps adapter errors into structured HTTP responses.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "unknown error",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrSubmissionInvalid):
		writeJSONError(w, http.StatusUnprocessableEntity, APIError{
			Code:    "submission_invalid",
			Message: err.Error(),
			Hint:    common.UserMessage(err),
		})
	case errors.Is(err, common.ErrSubmissionFailed):
		writeJSONError(w, http.StatusBadGateway, APIError{
			Code:    "submission_failed",
			Message: err.Error(),
			Hint:    common.UserMessage(err),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeMethodNotAllowed writes a structured 405 response with `Allow` headers.
func writeMethodNotAllowed(w http.ResponseWriter, methods ...string) {
	if len(methods) > 0 {
		w.Header().Set("Allow", strings.Join(methods, ", "))
	}
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":{"code":"encode_error","message":"%s"}}`, err.Error()), http.StatusInternalServerError)
	}
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	default:
		return nil
	}
}

// decodeOptionalJSONBody decodes one optional JSON body and ignores empty payloads.
func decodeOptionalJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(out)
	if err == nil {
		select {
		case <-ctx.Done():
			return fmt.Errorf("request canceled: %w", ctx.Err())
		default:
			return nil
		}
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
}
