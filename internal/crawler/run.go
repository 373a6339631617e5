package crawler

import (
	"context"
	"fmt"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/internal/store"
	"sigeduc-scraper/lib/navigator"
	"sigeduc-scraper/lib/timezone"
	"strings"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_crawler_list          = "units.list"
	report_crawler_item          = "item"
	report_crawler_activation    = "item.activation"
	report_crawler_members       = "members"
	report_crawler_announcements = "announcements"
)

// activationKey compares link texts ignoring trailing punctuation, the portal
// sometimes ends a unit name with a period.
func activationKey(name string) string {
	return strings.TrimRight(name, ".,;: ")
}

// findActivation returns the anchor whose display text names unitName. An
// exact match wins, otherwise a single anchor that differs only in trailing
// punctuation is accepted. Anything else fails the item, the closest link
// text is only named in the error.
func (c *Crawler) findActivation(ctx context.Context, unitName string) (navigator.Element, error) {
	selector := c.opts.Selectors.UnitActivation
	_, err := c.rc.Nav.Locate(ctx, selector, c.opts.Timeouts.Element)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedPageState, err)
	}
	anchors, err := c.rc.Nav.LocateAll(ctx, selector)
	if err != nil {
		return nil, err
	}

	key := activationKey(unitName)
	var lenient []navigator.Element
	var lenientName string
	var closest string
	var closestSimilarity float64
	for _, anchor := range anchors {
		name := c.unitName(elementText(anchor))
		if name == unitName {
			return anchor, nil
		}
		if activationKey(name) == key {
			lenient = append(lenient, anchor)
			lenientName = name
			continue
		}
		similarity := matchr.JaroWinkler(name, unitName, false)
		if similarity > closestSimilarity {
			closest = name
			closestSimilarity = similarity
		}
	}

	switch len(lenient) {
	case 1:
		c.tel.ReportWarning(report_crawler_activation, fmt.Errorf("link text differs in punctuation"), unitName, lenientName)
		return lenient[0], nil
	case 0:
		if closest != "" {
			return nil, fmt.Errorf("%w: no link for unit '%s' (closest '%s')", ErrUnexpectedPageState, unitName, closest)
		}
		return nil, fmt.Errorf("%w: no link for unit '%s'", ErrUnexpectedPageState, unitName)
	default:
		return nil, fmt.Errorf("%w: %d ambiguous links for unit '%s'", ErrUnexpectedPageState, len(lenient), unitName)
	}
}

// openUnit goes back to the unit list (the portal keeps per page state, so a
// detail page can only be reached from a fresh list) and activates the
// unit's link.
func (c *Crawler) openUnit(ctx context.Context, unitName string) error {
	err := c.rc.Nav.Goto(ctx, c.opts.ListUrl)
	if err != nil {
		return fmt.Errorf("open unit list: %w", err)
	}
	anchor, err := c.findActivation(ctx, unitName)
	if err != nil {
		return err
	}
	err = anchor.Click(ctx)
	if err != nil {
		return fmt.Errorf("open unit: %w", err)
	}
	err = c.rc.Nav.WaitSettled(ctx, c.opts.Timeouts.Settle)
	if err != nil {
		return fmt.Errorf("wait for unit page: %w", err)
	}
	return nil
}

func (c *Crawler) runItem(ctx context.Context, unit db.Unit) ItemResult {
	ctx, span := tracer.Start(ctx, "Item")
	defer span.End()
	span.SetAttributes(attribute.String("unit", unit.Name))

	result := ItemResult{Unit: unit.Name}
	fail := func(stage State, err error) ItemResult {
		span.RecordError(err)
		span.SetStatus(codes.Error, "item failed")

		result.Status = ITEM_FAILED
		result.Stage = stage
		result.Err = err
		result.Diagnostic = c.capture(ctx, "unit "+unit.Name)
		c.tel.ReportBroken(report_crawler_item, err, unit.Name, stage.String(), result.Diagnostic)
		return result
	}

	c.transition(STATE_ITEM_NAVIGATE)
	err := c.openUnit(ctx, unit.Name)
	if err != nil {
		return fail(STATE_ITEM_NAVIGATE, err)
	}

	c.transition(STATE_ITEM_EXTRACT)
	summary, err := c.ExtractSummary(ctx, unit.Name)
	if err != nil {
		return fail(STATE_ITEM_EXTRACT, err)
	}
	if summary == nil {
		result.Status = ITEM_SKIPPED
		result.Stage = STATE_ITEM_EXTRACT
		result.Err = ErrLookupMiss
		return result
	}

	c.transition(STATE_ITEM_PERSIST)
	err = c.rc.Store.SaveSummary(ctx, *summary)
	if err != nil {
		return fail(STATE_ITEM_PERSIST, err)
	}

	result.Status = ITEM_OK
	result.Stage = STATE_ITEM_PERSIST
	return result
}

// runStage extracts a page of records and persists them as one batch. A
// failed extraction is isolated to the stage.
func runStage[T any](
	ctx context.Context,
	c *Crawler,
	reportId string,
	pageUrl string,
	extract func(context.Context, string) ([]T, error),
	save func(context.Context, []T) store.BatchResult,
) StageResult {
	records, err := extract(ctx, pageUrl)
	if err != nil {
		diagnostic := c.capture(ctx, reportId)
		c.tel.ReportBroken(reportId, err, pageUrl, diagnostic)
		return StageResult{Err: err}
	}
	return StageResult{
		Found:     len(records),
		Persisted: save(ctx, records),
	}
}

func (c *Crawler) finish(report *Report, state State) {
	c.transition(state)
	report.State = state
	report.Trail = append([]State(nil), c.trail...)
	report.FinishedAt = timezone.Now()

	c.tel.ReportCount("items.ok", int64(report.Count(ITEM_OK)))
	c.tel.ReportCount("items.skipped", int64(report.Count(ITEM_SKIPPED)))
	c.tel.ReportCount("items.failed", int64(report.Count(ITEM_FAILED)))
}

// Run performs a whole crawl: authenticate, persist the unit list, extract and
// persist the summary of every persisted unit, then the member and
// announcement pages when configured.
//
// Only an authentication failure, an unreadable store or a cancelled context
// end the run early, every other failure is recorded in the report. A Crawler
// runs once, later calls return ErrAlreadyRun.
func (c *Crawler) Run(ctx context.Context) (Report, error) {
	if c.state != STATE_LOGGED_OUT {
		return Report{RunId: c.rc.RunId, State: c.state}, ErrAlreadyRun
	}

	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	report := Report{
		RunId:     c.rc.RunId,
		StartedAt: timezone.Now(),
	}

	c.transition(STATE_AUTHENTICATING)
	ok, err := c.Authenticate(ctx, c.opts.Credentials)
	if !ok {
		span.SetStatus(codes.Error, "authentication failed")
		c.finish(&report, STATE_FAILED)
		return report, err
	}
	c.transition(STATE_AUTHENTICATED)

	c.transition(STATE_LISTING)
	report.List = runStage(ctx, c, report_crawler_list, c.opts.ListUrl, c.ExtractUnits, c.rc.Store.SaveUnits)

	// persisted units, not the ones just listed, so units of earlier runs
	// are refreshed as well
	units, err := c.rc.Store.Units(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to read units")
		c.finish(&report, STATE_FAILED)
		return report, fmt.Errorf("read persisted units: %w", err)
	}

	for _, unit := range units {
		if ctx.Err() != nil {
			c.finish(&report, STATE_FAILED)
			return report, ctx.Err()
		}
		report.Items = append(report.Items, c.runItem(ctx, unit))
	}

	if c.opts.MembersUrl != "" && ctx.Err() == nil {
		c.transition(STATE_MEMBERS)
		result := runStage(ctx, c, report_crawler_members, c.opts.MembersUrl, c.ExtractMembers, c.rc.Store.SaveMembers)
		report.Members = &result
	}
	if c.opts.AnnouncementsUrl != "" && ctx.Err() == nil {
		c.transition(STATE_ANNOUNCEMENTS)
		result := runStage(ctx, c, report_crawler_announcements, c.opts.AnnouncementsUrl, c.ExtractAnnouncements, c.rc.Store.SaveAnnouncements)
		report.Announcements = &result
	}
	if ctx.Err() != nil {
		c.finish(&report, STATE_FAILED)
		return report, ctx.Err()
	}

	c.finish(&report, STATE_DONE)
	return report, nil
}
