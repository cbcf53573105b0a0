package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"fileops-backend/internal/models"
	"fileops-backend/internal/repository"
)

// AuditService appends entries to the action log. Logging is best effort:
// a failed write never propagates to the operation it describes, it only
// shows up in the process log.
type AuditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// Record writes one audit entry. actorID and fileID may be nil (anonymous
// share downloads, actions without a file target).
func (s *AuditService) Record(ctx context.Context, actorID *uuid.UUID, action models.LogAction, fileID *uuid.UUID, details map[string]interface{}, ip string) {
	var payload json.RawMessage
	if details != nil {
		encoded, err := json.Marshal(details)
		if err != nil {
			log.Printf("audit: failed to encode details for %s: %v", action, err)
		} else {
			payload = encoded
		}
	}

	entry := &models.LogEntry{
		UserID:    actorID,
		Action:    action,
		FileID:    fileID,
		Details:   payload,
		IPAddress: ip,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		log.Printf("audit: failed to record %s: %v", action, err)
	}
}

func (s *AuditService) List(ctx context.Context, filter repository.LogFilter) ([]models.LogEntry, error) {
	return s.repo.List(ctx, filter)
}

// Stats aggregates per-action totals plus the number of distinct actors.
func (s *AuditService) Stats(ctx context.Context) (map[string]int64, error) {
	counts, err := s.repo.ActionCounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]int64, len(counts)+1)
	for action, count := range counts {
		stats["total_"+action+"s"] = count
	}

	users, err := s.repo.DistinctUsers(ctx)
	if err != nil {
		return nil, err
	}
	stats["total_unique_users"] = users
	return stats, nil
}
