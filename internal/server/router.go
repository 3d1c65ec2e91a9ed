package server

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/energy-bills/internal/handlers"
	"github.com/diewo77/energy-bills/internal/httpx"
	"github.com/diewo77/energy-bills/internal/services"
)

// New constructs the root http.Handler with all routes applied.
func New(db *gorm.DB, svc *services.BillService) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		// Lightweight DB check, no detailed errors in the body
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Bill endpoints
	bh := handlers.NewBillHandler(svc)
	mux.HandleFunc("POST /api/bills/upload", bh.Upload)
	mux.HandleFunc("GET /api/bills", bh.List)
	mux.HandleFunc("GET /api/bills/{id}/file", bh.GetFile)
	mux.HandleFunc("GET /api/bills/statistics/monthly", bh.MonthlyStatistics)

	return mux
}
