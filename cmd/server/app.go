package main

import (
	"log/slog"
	"net/http"
	"os"

	"gorm.io/gorm"

	"github.com/diewo77/energy-bills/internal/config"
	"github.com/diewo77/energy-bills/internal/extract"
	"github.com/diewo77/energy-bills/internal/pdftext"
	"github.com/diewo77/energy-bills/internal/repository"
	"github.com/diewo77/energy-bills/internal/server"
	"github.com/diewo77/energy-bills/internal/services"
	"github.com/diewo77/energy-bills/internal/storage"
)

// NewApp wires the full handler graph. Kept separate from main so
// end-to-end tests can mount the whole application over a test database.
func NewApp(dbConn *gorm.DB, cfg config.Config) http.Handler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	clients := repository.NewClientRepository(dbConn, logger)
	bills := repository.NewBillRepository(dbConn, logger)
	files := storage.NewFileStore(cfg.UploadsDir, logger)
	decoder := pdftext.NewReader(cfg.MaxUploadBytes)

	svc := services.NewBillService(clients, bills, files, decoder, extract.Default(), logger)
	return server.New(dbConn, svc)
}
