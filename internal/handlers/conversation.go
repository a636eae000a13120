package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"insightchat-backend/internal/conversation"
	"insightchat-backend/internal/middleware"
	"insightchat-backend/internal/models"
	"insightchat-backend/internal/repository"
)

type datasetReader interface {
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Dataset, error)
	GetAnalysis(ctx context.Context, userID, fileID uuid.UUID) (*models.DatasetInsights, error)
}

type ConversationHandler struct {
	store    *conversation.Store
	datasets datasetReader
}

func NewConversationHandler(store *conversation.Store, datasets datasetReader) *ConversationHandler {
	return &ConversationHandler{store: store, datasets: datasets}
}

func (h *ConversationHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req models.OpenConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fileID, err := uuid.Parse(req.FileID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file_id": "must be a valid id"}, r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	if _, err := h.datasets.GetByID(r.Context(), userID, fileID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Dataset not found", r))
			return
		}
		log.Printf("failed to load dataset %s: %v", fileID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load dataset", r))
		return
	}

	// Register before reading the analysis so a worker finishing in between
	// finds this conversation in BootstrapFile.
	conv := h.store.Open(r.Context(), userID, fileID, nil)

	ins, err := h.datasets.GetAnalysis(r.Context(), userID, fileID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.store.Close(userID, conv.ID)
		log.Printf("failed to load analysis for %s: %v", fileID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load analysis", r))
		return
	}
	if ins != nil {
		conv.Bootstrap(r.Context(), ins)
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"conversation": conv.Snapshot()})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversation": conv.Snapshot()})
}

func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	msgs, err := conv.Send(r.Context(), middleware.GetCredential(r.Context()), req.Message)
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	case errors.Is(err, conversation.ErrNotReady):
		writeJSON(w, http.StatusConflict, errorResp("ANALYSIS_PENDING", "Dataset analysis is still running", r))
		return
	case err != nil:
		log.Printf("send failed for conversation %s: %v", conv.ID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to send message", r))
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Messages: msgs})
}

func (h *ConversationHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req models.SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := conv.SetMode(r.Context(), conversation.Mode(req.Mode)); err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"mode": "must be analysis or rawData"}, r))
		return
	}

	view := conv.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode":             view.Mode,
		"raw_data_fetched": view.RawDataFetched,
	})
}

func (h *ConversationHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return
	}

	if err := h.store.Close(middleware.GetUserID(r.Context()), id); err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) lookup(w http.ResponseWriter, r *http.Request) (*conversation.Conversation, bool) {
	id, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid conversation ID", r))
		return nil, false
	}

	conv, err := h.store.Get(middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation not found", r))
		return nil, false
	}
	return conv, true
}
