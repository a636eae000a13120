package handlers

import (
	"encoding/json"
	"net/http"

	"insightchat-backend/internal/charts"
	"insightchat-backend/internal/models"
)

const maxExtractBytes = 1 << 20

// ExtractHandler exposes the reply parsers without a conversation, for
// clients that talk to a model themselves.
type ExtractHandler struct {
	presentation *charts.Presentation
}

func NewExtractHandler(p *charts.Presentation) *ExtractHandler {
	return &ExtractHandler{presentation: p}
}

func (h *ExtractHandler) Charts(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeExtractRequest(w, r)
	if !ok {
		return
	}

	ext := charts.Extract(req.Text)
	resp := models.ExtractChartsResponse{
		Prose:    ext.Prose,
		Charts:   ext.Suggestions,
		RawBlock: ext.RawBlock,
		Rejected: len(ext.Problems),
	}
	if resp.Charts == nil {
		resp.Charts = []models.ChartSuggestion{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ExtractHandler) Tables(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeExtractRequest(w, r)
	if !ok {
		return
	}

	tables := charts.ExtractTables(req.Text)
	if tables == nil {
		tables = []models.Table{}
	}
	writeJSON(w, http.StatusOK, models.ExtractTablesResponse{Tables: tables})
}

func (h *ExtractHandler) Presentation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presentation)
}

func decodeExtractRequest(w http.ResponseWriter, r *http.Request) (models.ExtractRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxExtractBytes)

	var req models.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return req, false
	}
	return req, true
}
