// Package store persists extracted records. Every write is idempotent on the
// record's natural key so a crawl can be re-run any number of times.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/lib/assert"
	"sigeduc-scraper/lib/telemetry"
	"sigeduc-scraper/lib/timezone"
	"time"
)

const (
	report_store_unit         = "unit.save"
	report_store_summary      = "summary.save"
	report_store_member       = "member.save"
	report_store_announcement = "announcement.save"
)

var ErrInvalidRecord = errors.New("invalid record")

// BatchResult counts the outcome of every record in a batch write.
type BatchResult struct {
	// Saved records were inserted (or, for summaries, written).
	Saved int
	// Ignored records already existed under the same natural key.
	Ignored int
	// Failed records were rolled back, see the telemetry reports for why.
	Failed int
}

func (r BatchResult) Total() int {
	return r.Saved + r.Ignored + r.Failed
}

type Store struct {
	db     *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	tel    telemetry.API
	now    func() time.Time
}

func NewStore(database *sql.DB, tel telemetry.API) Store {
	assert.NotNil(database)
	assert.NotNil(tel)
	return Store{
		db:     database,
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		tel:    telemetry.NewScopedAPI("store", tel),
		now:    timezone.Now,
	}
}

// WithClock returns a copy of the store that stamps records with now.
func (s Store) WithClock(now func() time.Time) Store {
	s.now = now
	return s
}

// write runs fn inside its own transaction, the returned count is the number
// of rows fn affected.
func (s Store) write(ctx context.Context, fn func(qry *db.Queries) (int64, error)) (int64, error) {
	txqry, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return 0, err
	}
	defer discard()

	affected, err := fn(txqry)
	if err != nil {
		return 0, err
	}
	err = commit()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *BatchResult) add(affected int64, err error) {
	switch {
	case err != nil:
		r.Failed++
	case affected == 0:
		r.Ignored++
	default:
		r.Saved++
	}
}

// SaveUnits inserts every unit that does not exist yet, existing units are
// never updated.
func (s Store) SaveUnits(ctx context.Context, units []db.Unit) BatchResult {
	var result BatchResult
	extractedAt := s.now().Unix()
	for _, unit := range units {
		affected, err := s.saveUnit(ctx, unit, extractedAt)
		if err != nil {
			s.tel.ReportBroken(report_store_unit, err, unit.Name)
		}
		result.add(affected, err)
	}
	return result
}

func (s Store) saveUnit(ctx context.Context, unit db.Unit, extractedAt int64) (int64, error) {
	if unit.Name == "" || unit.DetailLink == "" {
		return 0, fmt.Errorf("%w: unit requires a name and a detail link", ErrInvalidRecord)
	}
	return s.write(ctx, func(qry *db.Queries) (int64, error) {
		return qry.CreateUnit(ctx, db.CreateUnitParams{
			Name:        unit.Name,
			DetailLink:  unit.DetailLink,
			ExtractedAt: extractedAt,
		})
	})
}

// SaveSummary creates the summary of summary.UnitID or overwrites every
// counter and the timestamp of the existing one.
func (s Store) SaveSummary(ctx context.Context, summary db.UnitSummary) error {
	_, err := s.write(ctx, func(qry *db.Queries) (int64, error) {
		err := qry.UpsertUnitSummary(ctx, db.UpsertUnitSummaryParams{
			UnitID:                 summary.UnitID,
			TotalEstudantes:        summary.TotalEstudantes,
			TotalServidores:        summary.TotalServidores,
			TotalTurmas:            summary.TotalTurmas,
			TotalEstudantesNovatos: summary.TotalEstudantesNovatos,
			EstudantesNaoAlocados:  summary.EstudantesNaoAlocados,
			ExtractedAt:            s.now().Unix(),
		})
		return 1, err
	})
	if err != nil {
		s.tel.ReportBroken(report_store_summary, err, summary.UnitID)
		return fmt.Errorf("save summary of unit %d: %w", summary.UnitID, err)
	}
	return nil
}

func (s Store) SaveMembers(ctx context.Context, members []db.Member) BatchResult {
	var result BatchResult
	extractedAt := s.now().Unix()
	for _, member := range members {
		affected, err := s.saveMember(ctx, member, extractedAt)
		if err != nil {
			s.tel.ReportBroken(report_store_member, err, member.RegistrationID)
		}
		result.add(affected, err)
	}
	return result
}

func (s Store) saveMember(ctx context.Context, member db.Member, extractedAt int64) (int64, error) {
	if member.Name == "" || member.RegistrationID == "" {
		return 0, fmt.Errorf("%w: member requires a name and a registration id", ErrInvalidRecord)
	}
	return s.write(ctx, func(qry *db.Queries) (int64, error) {
		return qry.CreateMember(ctx, db.CreateMemberParams{
			Name:           member.Name,
			RegistrationID: member.RegistrationID,
			NationalID:     member.NationalID,
			BirthDate:      member.BirthDate,
			ExtractedAt:    extractedAt,
		})
	})
}

func (s Store) SaveAnnouncements(ctx context.Context, announcements []db.Announcement) BatchResult {
	var result BatchResult
	extractedAt := s.now().Unix()
	for _, announcement := range announcements {
		affected, err := s.saveAnnouncement(ctx, announcement, extractedAt)
		if err != nil {
			s.tel.ReportBroken(report_store_announcement, err, announcement.Title)
		}
		result.add(affected, err)
	}
	return result
}

func (s Store) saveAnnouncement(ctx context.Context, announcement db.Announcement, extractedAt int64) (int64, error) {
	if announcement.Title == "" {
		return 0, fmt.Errorf("%w: announcement requires a title", ErrInvalidRecord)
	}
	return s.write(ctx, func(qry *db.Queries) (int64, error) {
		return qry.CreateAnnouncement(ctx, db.CreateAnnouncementParams{
			Title:       announcement.Title,
			PublishDate: announcement.PublishDate,
			Body:        announcement.Body,
			SourceUrl:   announcement.SourceUrl,
			ExtractedAt: extractedAt,
		})
	})
}

func (s Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
