package report

import (
	"context"
	"fmt"
	"net/smtp"
	"sigeduc-scraper/internal/crawler"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("internal/report")

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	To           []string `json:"to"`
}

// Enabled reports whether there is somewhere to send reports to.
func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && len(c.To) > 0
}

func Subject(r crawler.Report) string {
	totals := StageTotals(r)
	return fmt.Sprintf(
		"[sigeduc] run %s %s: %d units ok, %d failed, %d records saved",
		r.RunId, r.State,
		r.Count(crawler.ITEM_OK), r.Count(crawler.ITEM_FAILED),
		totals.Saved,
	)
}

// Mail sends the rendered report of r to every configured recipient.
func Mail(ctx context.Context, config SmtpConfig, r crawler.Report) error {
	_, span := tracer.Start(ctx, "Mail")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("SIGEduc Scraper <%s>", config.EmailAddress)
	mail.To = config.To
	mail.Subject = Subject(r)
	mail.Text = []byte(RunText(r))

	addr := fmt.Sprintf("%s:%d", config.Server, config.Port)
	err := mail.Send(addr, smtp.PlainAuth("", config.EmailAddress, config.Password, config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}
