package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"insightchat-backend/internal/middleware"
	"insightchat-backend/internal/models"
	"insightchat-backend/internal/repository"
)

const maxUploadBytes = 20 << 20

type datasetRepository interface {
	datasetReader
	Create(ctx context.Context, d *models.Dataset, records []models.Record) error
}

type jobQueue interface {
	Enqueue(ctx context.Context, queue string, job any) error
}

type DatasetHandler struct {
	datasets datasetRepository
	queue    jobQueue
}

func NewDatasetHandler(datasets datasetRepository, queue jobQueue) *DatasetHandler {
	return &DatasetHandler{datasets: datasets, queue: queue}
}

// Create stores an uploaded record set and queues its analysis.
func (h *DatasetHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var req models.CreateDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := map[string]string{}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		fields["name"] = "is required"
	}
	if len(req.Records) == 0 {
		fields["records"] = "must contain at least one record"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	ds := &models.Dataset{UserID: userID, Name: req.Name}
	if err := h.datasets.Create(r.Context(), ds, req.Records); err != nil {
		log.Printf("failed to store dataset for user %s: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store dataset", r))
		return
	}

	job := models.AnalysisJob{ID: uuid.New(), UserID: userID, FileID: ds.ID}
	if err := h.queue.Enqueue(r.Context(), models.AnalysisQueue, job); err != nil {
		log.Printf("failed to queue analysis for dataset %s: %v", ds.ID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue analysis", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"dataset": ds,
		"job":     job,
	})
}

func (h *DatasetHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	fileID, ok := urlUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid dataset ID", r))
		return
	}

	ins, err := h.datasets.GetAnalysis(r.Context(), middleware.GetUserID(r.Context()), fileID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Analysis not available", r))
		return
	}
	if err != nil {
		log.Printf("failed to load analysis %s: %v", fileID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load analysis", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"analysis": ins})
}
