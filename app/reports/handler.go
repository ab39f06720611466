package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/lavega/order-pipeline/app/api"
	"github.com/lavega/order-pipeline/models"
)

type ReportBuilder interface {
	BuildPurchasingList(ctx context.Context, date time.Time) (*PurchasingList, error)
	BuildAssemblyList(ctx context.Context, date time.Time, sortBy SortKey) (*AssemblyList, error)
}

// Sink serializes tables into a downloadable file.
type Sink interface {
	ContentType() string
	Extension() string
	Write(w io.Writer, tables ...Table) error
}

type ReportHandler struct {
	builder     ReportBuilder
	sink        Sink
	defaultSort SortKey
}

func NewReportHandler(builder ReportBuilder, sink Sink, defaultSort SortKey) *ReportHandler {
	return &ReportHandler{builder: builder, sink: sink, defaultSort: defaultSort}
}

func (h *ReportHandler) HandlePurchasing(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(r.PathValue("date"))
	if err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	list, err := h.builder.BuildPurchasingList(r.Context(), date)
	if err != nil {
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to build purchasing list")
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		h.download(w, "lista_compras_"+list.Date, list.Table())
		return
	}
	api.OKResponse(w, list)
}

func (h *ReportHandler) HandleAssembly(w http.ResponseWriter, r *http.Request) {
	date, err := models.ParseDate(r.PathValue("date"))
	if err != nil {
		api.ErrorResponse(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	sortBy := h.defaultSort
	if s := r.URL.Query().Get("sort"); s != "" {
		if sortBy, err = ParseSortKey(s); err != nil {
			api.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	list, err := h.builder.BuildAssemblyList(r.Context(), date, sortBy)
	if err != nil {
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to build assembly list")
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		h.download(w, "pedidos_armado_"+list.Date, list.Table())
		return
	}
	api.OKResponse(w, list)
}

func (h *ReportHandler) download(w http.ResponseWriter, name string, table Table) {
	if h.sink == nil {
		api.ErrorResponse(w, http.StatusNotImplemented, "spreadsheet export not configured")
		return
	}
	var buf bytes.Buffer
	if err := h.sink.Write(&buf, table); err != nil {
		log.Printf("render %s: %v", name, err)
		api.ErrorResponse(w, http.StatusInternalServerError, "failed to render spreadsheet")
		return
	}
	w.Header().Set("Content-Type", h.sink.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, name, h.sink.Extension()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("write %s: %v", name, err)
	}
}
