package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/cliniccare-api/internal/model"
	"github.com/jwalitptl/cliniccare-api/internal/repository"
	"github.com/jwalitptl/cliniccare-api/pkg/logger"
)

type Service struct {
	repo   repository.AuditRepository
	logger *logger.Logger
}

func NewService(repo repository.AuditRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger.With("component", "audit")}
}

// Log writes an audit entry attributed to the actor in ctx, if any.
func (s *Service) Log(ctx context.Context, action, entityType string, entityID uuid.UUID, changes interface{}) error {
	entry := &model.AuditLog{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now().UTC(),
	}

	if changes != nil {
		raw, err := json.Marshal(changes)
		if err != nil {
			return fmt.Errorf("failed to marshal audit changes: %w", err)
		}
		entry.Changes = raw
	}

	if actor, ok := ActorFrom(ctx); ok {
		id := actor.UserID
		entry.UserID = &id
		entry.IPAddress = actor.IPAddress
		entry.UserAgent = actor.UserAgent
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// Record is Log for callers that must not fail on audit errors.
func (s *Service) Record(ctx context.Context, action, entityType string, entityID uuid.UUID, changes interface{}) {
	if err := s.Log(ctx, action, entityType, entityID, changes); err != nil {
		s.logger.Error(err, "Audit log dropped",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID.String())
	}
}

func (s *Service) List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error) {
	logs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

// Cleanup removes entries older than before.
func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	return n, nil
}
