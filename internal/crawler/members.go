package crawler

import (
	"context"
	"database/sql"
	"fmt"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/lib/timezone"

	"go.opentelemetry.io/otel/codes"
)

const (
	report_crawler_member_row  = "members.row"
	report_crawler_member_date = "members.birth_date"
)

const minMemberCells = 3

// isoDate converts a dd/mm/yyyy date into yyyy-mm-dd, empty values are null.
func isoDate(value string) (sql.NullString, error) {
	if value == "" {
		return sql.NullString{}, nil
	}
	date, err := timezone.ParseDate(value)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: date.Format("2006-01-02"), Valid: true}, nil
}

// ExtractMembers reads the member table of the page at membersUrl. Each row
// holds name, registration id, national id and optionally a birth date.
func (c *Crawler) ExtractMembers(ctx context.Context, membersUrl string) ([]db.Member, error) {
	ctx, span := tracer.Start(ctx, "ExtractMembers")
	defer span.End()

	err := c.rc.Nav.Goto(ctx, membersUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to open member list")
		return nil, fmt.Errorf("open member list: %w", err)
	}
	table, err := c.locateTable(ctx, c.opts.Selectors.MemberTable, "")
	if err != nil {
		span.SetStatus(codes.Error, "failed to find member table")
		return nil, fmt.Errorf("member table: %w", err)
	}
	rows, err := table.Find("tbody > tr")
	if err != nil {
		return nil, err
	}

	var members []db.Member
	for i, row := range rows {
		header, err := isHeaderRow(row)
		if err != nil {
			c.tel.ReportWarning(report_crawler_member_row, err, i)
			continue
		}
		if header {
			continue
		}
		cells, err := row.Find("td")
		if err != nil {
			c.tel.ReportWarning(report_crawler_member_row, err, i)
			continue
		}
		if len(cells) < minMemberCells {
			continue
		}

		member := db.Member{
			Name:           elementText(cells[0]),
			RegistrationID: elementText(cells[1]),
			NationalID:     elementText(cells[2]),
		}
		if member.Name == "" || member.RegistrationID == "" {
			c.tel.ReportWarning(report_crawler_member_row, fmt.Errorf("row without name or registration id"), i)
			continue
		}
		if len(cells) > minMemberCells {
			member.BirthDate, err = isoDate(elementText(cells[3]))
			if err != nil {
				c.tel.ReportWarning(report_crawler_member_date, err, member.RegistrationID)
			}
		}
		members = append(members, member)
	}

	c.tel.ReportCount("members.found", int64(len(members)))
	return members, nil
}
