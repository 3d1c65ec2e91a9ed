package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/diewo77/energy-bills/internal/httpx"
	"github.com/diewo77/energy-bills/internal/services"
)

// maxUploadMemory bounds the in-memory part of multipart parsing; larger
// bodies spill to disk.
const maxUploadMemory = 10 << 20

// BillHandler exposes the ingestion pipeline and its read side over HTTP.
type BillHandler struct {
	Svc *services.BillService
}

func NewBillHandler(svc *services.BillService) *BillHandler {
	return &BillHandler{Svc: svc}
}

// Upload: POST /api/bills/upload, multipart field "file".
func (h *BillHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_multipart_body", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "file_required", nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_read_upload", nil)
		return
	}

	bill, err := h.Svc.Ingest(r.Context(), content, header.Filename)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

// List: GET /api/bills?page&limit&clientNumber&referenceMonth
func (h *BillHandler) List(w http.ResponseWriter, r *http.Request) {
	params := services.ListBillsParams{
		Page:           1,
		Limit:          10,
		ClientNumber:   r.URL.Query().Get("clientNumber"),
		ReferenceMonth: r.URL.Query().Get("referenceMonth"),
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			params.Page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			params.Limit = n
		}
	}

	list, err := h.Svc.List(r.Context(), params)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

// GetFile: GET /api/bills/{id}/file streams the archived source document
// under its original upload filename.
func (h *BillHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_bill_id", nil)
		return
	}

	bf, err := h.Svc.GetBillFile(r.Context(), uint(id))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", bf.Filename))
	http.ServeFile(w, r, bf.FilePath)
}

// MonthlyStatistics: GET /api/bills/statistics/monthly?year&clientNumber
func (h *BillHandler) MonthlyStatistics(w http.ResponseWriter, r *http.Request) {
	params := services.StatisticsParams{
		ClientNumber: r.URL.Query().Get("clientNumber"),
	}
	if v := r.URL.Query().Get("year"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Year = n
		}
	}

	stats, err := h.Svc.MonthlyStatistics(r.Context(), params)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
