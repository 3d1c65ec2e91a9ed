package repository

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"github.com/diewo77/energy-bills/internal/models"
)

// ClientRepository resolves clients by their business key.
type ClientRepository interface {
	// FindByNumber returns the client with the given number, or nil when
	// none exists.
	FindByNumber(ctx context.Context, clientNumber string) (*models.Client, error)
	Create(ctx context.Context, c *models.Client) error
}

type clientRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewClientRepository(db *gorm.DB, logger *slog.Logger) ClientRepository {
	return &clientRepository{db: db, logger: logger}
}

func (r *clientRepository) FindByNumber(ctx context.Context, clientNumber string) (*models.Client, error) {
	var c models.Client
	err := r.db.WithContext(ctx).Where("client_number = ?", clientNumber).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to look up client", "client_number", clientNumber, "error", err)
		return nil, err
	}
	return &c, nil
}

func (r *clientRepository) Create(ctx context.Context, c *models.Client) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		r.logger.Error("failed to create client", "client_number", c.ClientNumber, "error", err)
		return err
	}
	return nil
}
