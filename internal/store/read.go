package store

import (
	"context"
	"database/sql"
	"errors"
	"sigeduc-scraper/internal/db"
)

func (s Store) Units(ctx context.Context) ([]db.Unit, error) {
	return s.qry.ListUnits(ctx)
}

// UnitByName returns false if no unit is stored under name.
func (s Store) UnitByName(ctx context.Context, name string) (db.Unit, bool, error) {
	unit, err := s.qry.GetUnitByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Unit{}, false, nil
	}
	if err != nil {
		return db.Unit{}, false, err
	}
	return unit, true, nil
}

// SummaryForUnit returns false if the unit has no summary yet.
func (s Store) SummaryForUnit(ctx context.Context, unitId int64) (db.UnitSummary, bool, error) {
	summary, err := s.qry.GetUnitSummary(ctx, unitId)
	if errors.Is(err, sql.ErrNoRows) {
		return db.UnitSummary{}, false, nil
	}
	if err != nil {
		return db.UnitSummary{}, false, err
	}
	return summary, true, nil
}

func (s Store) CountSummaries(ctx context.Context) (int64, error) {
	return s.qry.CountUnitSummaries(ctx)
}

// Summaries returns every summary along with the name of its unit, ordered by
// unit name.
func (s Store) Summaries(ctx context.Context) ([]db.ListUnitSummariesRow, error) {
	return s.qry.ListUnitSummaries(ctx)
}

func (s Store) Members(ctx context.Context) ([]db.Member, error) {
	return s.qry.ListMembers(ctx)
}

func (s Store) Announcements(ctx context.Context) ([]db.Announcement, error) {
	return s.qry.ListAnnouncements(ctx)
}
