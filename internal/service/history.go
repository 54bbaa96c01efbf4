package service

import (
	"context"
	"errors"
	"time"

	"co2_monitor/internal/models"
	"co2_monitor/internal/repository"
)

var ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")

const maxHistoryLimit = 1000

// HistoryFilter selects notifications from the history.
type HistoryFilter struct {
	From  time.Time
	To    time.Time
	Tier  string
	Limit int
}

type HistoryService struct {
	repo repository.NotificationRepo
}

func NewHistoryService(repo repository.NotificationRepo) *HistoryService {
	return &HistoryService{repo: repo}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func (s *HistoryService) List(ctx context.Context, f HistoryFilter) ([]models.Notification, error) {
	from, to := normalizeToUTC(f.From), normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, ErrInvalidTimeRange
	}
	limit := f.Limit
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.List(ctx, repository.NotificationFilter{From: from, To: to, Tier: f.Tier, Limit: limit})
}
