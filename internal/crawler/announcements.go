package crawler

import (
	"context"
	"fmt"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/lib/navigator"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_crawler_announcement_item = "announcements.item"
	report_crawler_announcement_date = "announcements.publish_date"
	report_crawler_announcement_body = "announcements.body"
)

var markdown = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// ExtractAnnouncements reads every announcement card of the page at
// announcementsUrl. Bodies are kept as markdown.
func (c *Crawler) ExtractAnnouncements(ctx context.Context, announcementsUrl string) ([]db.Announcement, error) {
	ctx, span := tracer.Start(ctx, "ExtractAnnouncements")
	defer span.End()

	nav := c.rc.Nav
	selectors := c.opts.Selectors

	err := nav.Goto(ctx, announcementsUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to open announcements")
		return nil, fmt.Errorf("open announcements: %w", err)
	}
	pageUrl, err := nav.Location(ctx)
	if err != nil {
		return nil, err
	}
	container, err := c.locateTable(ctx, selectors.AnnouncementContainer, "")
	if err != nil {
		span.SetStatus(codes.Error, "failed to find announcements")
		return nil, fmt.Errorf("announcement container: %w", err)
	}
	items, err := container.Find(selectors.AnnouncementItem)
	if err != nil {
		return nil, err
	}

	var announcements []db.Announcement
	for i, item := range items {
		announcement, err := c.parseAnnouncement(item, pageUrl)
		if err != nil {
			c.tel.ReportWarning(report_crawler_announcement_item, err, i)
			continue
		}
		announcements = append(announcements, announcement)
	}

	c.tel.ReportCount("announcements.found", int64(len(announcements)))
	return announcements, nil
}

func firstText(item navigator.Element, selector string) (string, error) {
	found, err := item.Find(selector)
	if err != nil || len(found) == 0 {
		return "", err
	}
	return elementText(found[0]), nil
}

// bodyMarkdown converts the inner html of the body element to markdown,
// falling back to its plain text.
func (c *Crawler) bodyMarkdown(item navigator.Element, pageUrl string) (string, error) {
	found, err := item.Find(c.opts.Selectors.AnnouncementBody)
	if err != nil || len(found) == 0 {
		return "", err
	}
	body := found[0]

	contents, err := body.HTML()
	if err == nil {
		var converted string
		converted, err = markdown.ConvertString(contents, converter.WithDomain(pageUrl))
		if err == nil {
			return strings.TrimSpace(converted), nil
		}
	}
	c.tel.ReportWarning(report_crawler_announcement_body, err, pageUrl)
	return elementText(body), nil
}

func (c *Crawler) parseAnnouncement(item navigator.Element, pageUrl string) (db.Announcement, error) {
	selectors := c.opts.Selectors

	title, err := firstText(item, selectors.AnnouncementTitle)
	if err != nil {
		return db.Announcement{}, err
	}
	if title == "" {
		return db.Announcement{}, fmt.Errorf("announcement without a title")
	}

	announcement := db.Announcement{Title: title}

	date, err := firstText(item, selectors.AnnouncementDate)
	if err != nil {
		return db.Announcement{}, err
	}
	announcement.PublishDate, err = isoDate(date)
	if err != nil {
		c.tel.ReportWarning(report_crawler_announcement_date, err, title)
	}

	announcement.Body, err = c.bodyMarkdown(item, pageUrl)
	if err != nil {
		return db.Announcement{}, err
	}

	links, err := item.Find(selectors.AnnouncementLink)
	if err != nil {
		return db.Announcement{}, err
	}
	if len(links) > 0 {
		href, ok, err := links[0].Attribute("href")
		if err != nil {
			return db.Announcement{}, err
		}
		if ok && href != "" {
			announcement.SourceUrl, err = c.resolve(pageUrl, href)
			if err != nil {
				c.tel.ReportWarning(report_crawler_announcement_item, err, title)
			}
		}
	}
	if announcement.SourceUrl == "" {
		announcement.SourceUrl = pageUrl
	}

	return announcement, nil
}
