package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"microlearn/internal/model"
	"microlearn/internal/service"
	"microlearn/internal/transport/rest/middleware"
)

// TopicHandler handles topic generation and retrieval endpoints
type TopicHandler struct {
	topicSvc *service.TopicService
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(topicSvc *service.TopicService) *TopicHandler {
	return &TopicHandler{topicSvc: topicSvc}
}

// Generate handles POST /v1/topics/generate
func (h *TopicHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.GenerateTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if req.Title == "" || req.Category == "" {
		writeError(w, http.StatusBadRequest, "title and category are required")
		return
	}

	result, err := h.topicSvc.Generate(r.Context(), userID, &req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Store handles POST /v1/topics
func (h *TopicHandler) Store(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.StoreTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if req.Title == "" || req.Category == "" || req.Summary == "" {
		writeError(w, http.StatusBadRequest, "title, category and summary are required")
		return
	}

	result, err := h.topicSvc.StoreTopic(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidQuiz) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "store failed")
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// List handles GET /v1/topics?category=...
func (h *TopicHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	category := r.URL.Query().Get("category")

	topics, err := h.topicSvc.ListTopics(r.Context(), userID, category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list topics")
		return
	}
	if topics == nil {
		topics = []*model.Topic{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": topics})
}

// Get handles GET /v1/topics/{id}
func (h *TopicHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}

	topic, err := h.topicSvc.GetTopic(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, service.ErrTopicNotFound) {
			writeError(w, http.StatusNotFound, "topic not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load topic")
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// SetVisibility handles PUT /v1/topics/{id}/visibility
func (h *TopicHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}

	var req struct {
		IsPublic *bool `json:"isPublic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsPublic == nil {
		writeError(w, http.StatusBadRequest, "isPublic is required")
		return
	}

	topic, err := h.topicSvc.SetVisibility(r.Context(), userID, id, *req.IsPublic)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTopicNotFound):
			writeError(w, http.StatusNotFound, "topic not found")
		case errors.Is(err, service.ErrNotOwner):
			writeError(w, http.StatusForbidden, "not the topic owner")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update visibility")
		}
		return
	}
	writeJSON(w, http.StatusOK, topic)
}
