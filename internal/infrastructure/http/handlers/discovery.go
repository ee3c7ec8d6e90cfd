// Package handlers provides HTTP handlers for the discovery API
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alchemorsel/discovery/internal/domain/discovery"
	"github.com/alchemorsel/discovery/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/discovery/internal/ports/inbound"
	apperrors "github.com/alchemorsel/discovery/pkg/errors"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// DiscoveryHandlers handles discovery API requests
type DiscoveryHandlers struct {
	service  inbound.DiscoveryService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewDiscoveryHandlers creates a new discovery handlers instance
func NewDiscoveryHandlers(service inbound.DiscoveryService, logger *zap.Logger) *DiscoveryHandlers {
	return &DiscoveryHandlers{
		service:  service,
		validate: newValidator(),
		logger:   logger.Named("handlers"),
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// SearchFilters are the optional trait filters of a search request
type SearchFilters struct {
	MaxTime     int   `json:"max_time" validate:"gte=0,lte=1440"`
	IsEasy      *bool `json:"is_easy"`
	KidFriendly *bool `json:"kid_friendly"`
}

// SearchRequest is the body of POST /api/v1/discover/search
type SearchRequest struct {
	Query          string         `json:"query" validate:"required_without=Command,max=500,query_text"`
	SessionID      string         `json:"session_id" validate:"max=128,session_id"`
	ShownRecipeIDs []int64        `json:"shown_recipe_ids" validate:"max=1000,dive,gt=0"`
	PageSize       int            `json:"page_size" validate:"gte=0,lte=100"`
	Filters        *SearchFilters `json:"filters"`
	Command        string         `json:"command" validate:"omitempty,oneof=reset"`
	Debug          bool           `json:"debug"`
}

// ResetRequest is the body of POST /api/v1/discover/reset
type ResetRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128,session_id"`
}

// RecipeView is one recipe on the wire
type RecipeView struct {
	ID               discovery.RecipeID `json:"id"`
	Title            string             `json:"title"`
	TimeMin          int                `json:"time_min"`
	IsEasy           bool               `json:"is_easy"`
	IsOnePot         bool               `json:"is_one_pot"`
	KidFriendly      bool               `json:"kid_friendly"`
	LeftoverFriendly bool               `json:"leftover_friendly"`
	Cuisine          string             `json:"cuisine,omitempty"`
	Category         string             `json:"category,omitempty"`
	PantryMatches    int                `json:"pantry_matches,omitempty"`
	Badges           []string           `json:"badges"`
	Explanations     string             `json:"explanations"`
}

// SearchResponse is the body returned by the search endpoint
type SearchResponse struct {
	Success          bool                    `json:"success"`
	SessionID        string                  `json:"session_id"`
	Recipes          []RecipeView            `json:"recipes"`
	TotalAvailable   int                     `json:"total_available"`
	HasMore          bool                    `json:"has_more"`
	ShownCount       int                     `json:"shown_count"`
	Summary          string                  `json:"summary,omitempty"`
	Message          string                  `json:"message"`
	VariationMessage string                  `json:"variation_message,omitempty"`
	Suggestions      []string                `json:"suggestions,omitempty"`
	Stats            discovery.ResponseStats `json:"stats"`
	Context          discovery.IntentContext `json:"context"`
	Metadata         inbound.SearchMetadata  `json:"search_metadata"`
}

// Search handles POST /api/v1/discover/search
func (h *DiscoveryHandlers) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Search(r.Context(), req.toCommand())
	if err != nil {
		h.writeError(w, r, err, result)
		return
	}

	h.writeJSON(w, http.StatusOK, toSearchResponse(result))
}

// Reset handles POST /api/v1/discover/reset
func (h *DiscoveryHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.service.Reset(r.Context(), req.SessionID)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    result,
		Message: result.Message,
	})
}

// Session handles GET /api/v1/discover/sessions/{id}
func (h *DiscoveryHandlers) Session(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validate.Var(id, "required,max=128,session_id"); err != nil {
		h.writeError(w, r, apperrors.NewValidationError("session id must be 1-128 printable characters without whitespace"), nil)
		return
	}

	result, err := h.service.Session(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	h.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

// decode reads and validates a JSON body, writing the error response itself
func (h *DiscoveryHandlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "Request body must be a JSON object"
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			msg = "Request body is too large"
		case errors.Is(err, io.EOF):
			msg = "Request body is empty"
		}
		middleware.WriteError(w, r, apperrors.NewBadRequestError(msg))
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		middleware.WriteError(w, r, validationError(err))
		return false
	}
	return true
}

func (h *DiscoveryHandlers) writeError(w http.ResponseWriter, r *http.Request, err error, partial *inbound.SearchResultDTO) {
	appErr := apperrors.Wrap(err, "Search failed")
	if appErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	}

	resp := apperrors.ToErrorResponse(appErr, chimiddleware.GetReqID(r.Context()))
	if partial != nil {
		view := toSearchResponse(partial)
		view.Success = false
		resp.Partial = view
	}
	h.writeJSON(w, appErr.StatusCode(), resp)
}

func (h *DiscoveryHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("Failed to write response", zap.Error(err))
	}
}

func (req SearchRequest) toCommand() inbound.SearchCommand {
	cmd := inbound.SearchCommand{
		Query:     req.Query,
		SessionID: req.SessionID,
		PageSize:  req.PageSize,
		Command:   req.Command,
		Debug:     req.Debug,
	}
	for _, id := range req.ShownRecipeIDs {
		cmd.ShownHint = append(cmd.ShownHint, discovery.RecipeID(id))
	}
	if req.Filters != nil {
		cmd.Filters = discovery.Filters{
			MaxMinutes:  req.Filters.MaxTime,
			IsEasy:      req.Filters.IsEasy,
			KidFriendly: req.Filters.KidFriendly,
		}
	}
	return cmd
}

func toSearchResponse(dto *inbound.SearchResultDTO) SearchResponse {
	recipes := make([]RecipeView, 0, len(dto.Recipes))
	for _, r := range dto.Recipes {
		recipes = append(recipes, RecipeView{
			ID:               r.ID,
			Title:            r.Title,
			TimeMin:          r.TotalMinutes,
			IsEasy:           r.Flags.IsEasy,
			IsOnePot:         r.Flags.IsOnePot,
			KidFriendly:      r.Flags.KidFriendly,
			LeftoverFriendly: r.Flags.LeftoverFriendly,
			Cuisine:          r.Cuisine,
			Category:         r.Category,
			PantryMatches:    r.PantryMatches,
			Badges:           r.Badges,
			Explanations:     r.Explanations,
		})
	}

	return SearchResponse{
		Success:          true,
		SessionID:        dto.SessionID,
		Recipes:          recipes,
		TotalAvailable:   dto.TotalAvailable,
		HasMore:          dto.HasMore,
		ShownCount:       dto.ShownCount,
		Summary:          dto.Summary,
		Message:          dto.Message,
		VariationMessage: dto.VariationMessage,
		Suggestions:      dto.Suggestions,
		Stats:            dto.Stats,
		Context:          dto.Context,
		Metadata:         dto.Metadata,
	}
}
