package parchi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/russhil/backend-parchi/internal/tenancy"
	"github.com/russhil/backend-parchi/pkg/logging"
)

// multipartOverhead is the slack allowed for form framing on top of the
// image ceiling.
const multipartOverhead = 1 << 20

// Handler exposes the intake pipeline over HTTP.
type Handler struct {
	uploads   *UploadService
	processor *Processor
	maxBytes  int64
	logger    *logging.Logger
}

// NewHandler wires the upload and process endpoints.
func NewHandler(uploads *UploadService, processor *Processor, maxBytes int64, logger *logging.Logger) *Handler {
	if uploads == nil {
		panic("parchi: handler requires an upload service")
	}
	if processor == nil {
		panic("parchi: handler requires a processor")
	}
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		uploads:   uploads,
		processor: processor,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

type uploadResponse struct {
	Success bool `json:"success"`
	UploadResult
}

type processRequest struct {
	Entries []Entry `json:"entries"`
}

type processResponse struct {
	Success bool            `json:"success"`
	Results []ProcessResult `json:"results"`
	Summary BatchSummary    `json:"summary"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Upload handles POST /parchi/upload: multipart field "file" in, extracted
// text and entry previews out. Performs no registry writes.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing multipart field \"file\": "+err.Error())
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	h.logger.Info("parchi image received",
		"filename", header.Filename,
		"bytes", len(image),
	)

	res, err := h.uploads.Upload(r.Context(), image)
	if err != nil {
		h.logger.Error("parchi upload failed", "error", err.Error())
		writeError(w, uploadStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Success: true, UploadResult: *res})
}

// Process handles POST /parchi/process: reviewed entries in, per-entry
// results and a batch summary out. Entry-level failures never fail the
// request.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "no entries provided")
		return
	}

	clinicID, _ := tenancy.ClinicIDFromContext(r.Context())
	doctorID, _ := tenancy.DoctorIDFromContext(r.Context())

	results, summary := h.processor.Process(r.Context(), clinicID, doctorID, req.Entries)
	writeJSON(w, http.StatusOK, processResponse{Success: true, Results: results, Summary: summary})
}

// uploadStatus maps the upload error taxonomy onto HTTP: invalid input is
// the caller's fault, unparseable AI output is unprocessable, and a vision
// failure is an upstream fault.
func uploadStatus(err error) int {
	var parseErr *ParseError
	var extractErr *ExtractionError
	switch {
	case errors.Is(err, ErrInvalidImage):
		return http.StatusBadRequest
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &extractErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
