package persistence

import (
	"context"
	"database/sql"

	"github.com/navneeth/viralvibes/domain/model"
	"github.com/navneeth/viralvibes/domain/repository"
	"github.com/navneeth/viralvibes/infrastructure/utils"
)

var _ repository.IDashboardEvent = (*DashboardEventRepository)(nil)

// DashboardEventRepository is the append-only interaction log for dashboards.
type DashboardEventRepository struct {
	db *sql.DB
}

func NewDashboardEventRepository(db *sql.DB) *DashboardEventRepository {
	return &DashboardEventRepository{db: db}
}

func (r *DashboardEventRepository) RecordEvent(ctx context.Context, dashboardID, eventType string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dashboard_events (dashboard_id, event_type, occurred_at) VALUES ($1,$2,$3)`,
		dashboardID, eventType, utils.GetCurrentTime())
	return err
}

func (r *DashboardEventRepository) GetEventCounts(ctx context.Context, dashboardID string) (*model.DashboardEventCounts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT event_type, COUNT(*) FROM dashboard_events WHERE dashboard_id=$1 GROUP BY event_type`,
		dashboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := &model.DashboardEventCounts{}
	for rows.Next() {
		var eventType string
		var n int64
		if err := rows.Scan(&eventType, &n); err != nil {
			return nil, err
		}
		switch eventType {
		case model.EventTypeView:
			counts.Views = n
		case model.EventTypeShare:
			counts.Shares = n
		case model.EventTypeExport:
			counts.Exports = n
		}
	}
	return counts, rows.Err()
}
