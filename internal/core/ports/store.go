package ports

import (
	"context"

	"github.com/melih/requirement-validator/internal/core/domain"
)

// ValidationStore persists validation records.
type ValidationStore interface {
	Save(ctx context.Context, rec *domain.Record) error
	Get(ctx context.Context, id string) (*domain.Record, error)
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]domain.Record, error)
	Close() error
}

// EventPublisher announces finished validations to other services.
type EventPublisher interface {
	PublishValidation(ctx context.Context, rec *domain.Record) error
	Close()
}
