package importer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lavega/order-pipeline/app/api"
	"github.com/lavega/order-pipeline/models"
)

type BatchResponse struct {
	ID                  string    `json:"id"`
	Source              string    `json:"source"`
	New                 int       `json:"new"`
	Duplicate           int       `json:"duplicate"`
	Skipped             int       `json:"skipped"`
	Dropped             int       `json:"dropped"`
	Failed              int       `json:"failed"`
	NewOrders           []string  `json:"new_orders"`
	MissingDeliveryDate []string  `json:"missing_delivery_date"`
	CreatedAt           time.Time `json:"created_at"`
}

type ImportService interface {
	ImportCSV(ctx context.Context, source string, r io.Reader) (*Summary, error)
	ListBatches(ctx context.Context, limit int) ([]models.ImportBatch, error)
}

type ImportHandler struct {
	svc            ImportService
	maxUploadBytes int64
}

func NewImportHandler(svc ImportService, maxUploadBytes int64) *ImportHandler {
	return &ImportHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// HandleUpload imports the CSV sent as the multipart field "file".
func (h *ImportHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "Invalid upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		api.ErrorResponse(w, http.StatusBadRequest, "File must be a CSV export")
		return
	}

	summary, err := h.svc.ImportCSV(r.Context(), header.Filename, file)
	switch {
	case err == nil:
		api.OKResponse(w, summary)
	case errors.Is(err, ErrInvalidCSV):
		api.ErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrStoreUnavailable):
		const msg = "Order store unavailable, import again later"
		if summary == nil {
			api.ErrorResponse(w, http.StatusServiceUnavailable, msg)
			return
		}
		// Orders committed before the outage are already stored.
		api.JSONResponse(w, http.StatusServiceUnavailable, map[string]any{"error": msg, "summary": summary})
	default:
		api.ErrorResponse(w, http.StatusInternalServerError, "Import failed")
	}
}

func (h *ImportHandler) HandleListBatches(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	batches, err := h.svc.ListBatches(r.Context(), limit)
	if err != nil {
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to fetch import batches")
		return
	}

	response := make([]BatchResponse, len(batches))
	for i, b := range batches {
		response[i] = BatchResponse{
			ID:                  b.ID.String(),
			Source:              b.Source,
			New:                 b.NewCount,
			Duplicate:           b.DuplicateCount,
			Skipped:             b.SkippedCount,
			Dropped:             b.DroppedCount,
			Failed:              b.FailedCount,
			NewOrders:           b.NewOrders,
			MissingDeliveryDate: b.MissingDeliveryDate,
			CreatedAt:           b.CreatedAt,
		}
	}
	api.OKResponse(w, response)
}
