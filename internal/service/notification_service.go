package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rusa-rba/route-assign/internal/models"
	"github.com/rusa-rba/route-assign/pkg/export"
	"github.com/rusa-rba/route-assign/pkg/jobs"
	"github.com/rusa-rba/route-assign/pkg/mailer"
)

// Notifier announces a committed batch of route changes.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// NotifierFunc allows using plain functions.
type NotifierFunc func(ctx context.Context, n models.Notification) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n models.Notification) error {
	return f(ctx, n)
}

const notificationDateLayout = "2006-01-02"

var notificationHeaders = []string{"Event", "Date", "Route", "Distance (km)"}

// MailNotifier mails the change summary with CSV and PDF copies attached.
type MailNotifier struct {
	sender mailer.Sender
	from   string
	logger *zap.Logger
}

// NewMailNotifier constructs a notifier that sends through sender.
func NewMailNotifier(sender mailer.Sender, from string, logger *zap.Logger) *MailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailNotifier{sender: sender, from: from, logger: logger}
}

// Notify implements Notifier.
func (m *MailNotifier) Notify(ctx context.Context, n models.Notification) error {
	if len(n.Recipients) == 0 {
		return fmt.Errorf("notification for %s has no recipients", n.RegionName)
	}
	data := notificationDataset(n)
	csvData, err := export.RenderCSV(data)
	if err != nil {
		return fmt.Errorf("render csv attachment: %w", err)
	}
	pdfData, err := export.RenderPDF(data)
	if err != nil {
		return fmt.Errorf("render pdf attachment: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102")
	msg := mailer.Message{
		From:    m.from,
		To:      n.Recipients,
		Subject: fmt.Sprintf("RUSA route assignments updated for %s", n.RegionName),
		Body:    NotificationBody(n),
		Attachments: []mailer.Attachment{
			{Name: fmt.Sprintf("route-changes-%d-%s.csv", n.RBAID, stamp), ContentType: "text/csv", Data: csvData},
			{Name: fmt.Sprintf("route-changes-%d-%s.pdf", n.RBAID, stamp), ContentType: "application/pdf", Data: pdfData},
		},
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		return err
	}
	m.logger.Info("change notification sent",
		zap.String("region", n.RegionName),
		zap.Strings("recipients", n.Recipients),
		zap.Int("events", len(n.Events)),
	)
	return nil
}

// NotificationBody renders the plain-text summary.
func NotificationBody(n models.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Region: %s\n", n.RegionName)
	fmt.Fprintf(&b, "RBA: %s (RUSA #%d)\n\n", n.RBAName, n.RBAID)
	b.WriteString("The following events have new route assignments:\n\n")
	for _, e := range n.Events {
		fmt.Fprintf(&b, "  %s  event %d  %skm  %s\n", e.Date.Format(notificationDateLayout), e.EventID, models.FormatKm(e.Distance), e.Route)
	}
	return b.String()
}

func notificationDataset(n models.Notification) export.Dataset {
	rows := make([]map[string]string, 0, len(n.Events))
	for _, e := range n.Events {
		rows = append(rows, map[string]string{
			"Event":         fmt.Sprintf("%d", e.EventID),
			"Date":          e.Date.Format(notificationDateLayout),
			"Route":         e.Route,
			"Distance (km)": models.FormatKm(e.Distance),
		})
	}
	return export.Dataset{
		Title:    fmt.Sprintf("Route assignments: %s", n.RegionName),
		Subtitle: []string{fmt.Sprintf("RBA: %s (RUSA #%d)", n.RBAName, n.RBAID)},
		Headers:  notificationHeaders,
		Rows:     rows,
	}
}

// QueuedNotifier hands notifications to a worker pool so a slow relay never
// delays the commit response. Only the hand-off is reported to the caller.
type QueuedNotifier struct {
	queue *jobs.Queue[models.Notification]
}

// NewQueuedNotifier wraps inner with a retrying queue.
func NewQueuedNotifier(inner Notifier, cfg jobs.QueueConfig) *QueuedNotifier {
	handler := func(ctx context.Context, job jobs.Job[models.Notification]) error {
		return inner.Notify(ctx, job.Payload)
	}
	return &QueuedNotifier{queue: jobs.NewQueue("notifications", handler, cfg)}
}

// Start launches the workers.
func (q *QueuedNotifier) Start(ctx context.Context) {
	q.queue.Start(ctx)
}

// Stop waits for in-flight deliveries.
func (q *QueuedNotifier) Stop() {
	q.queue.Stop()
}

// Notify implements Notifier.
func (q *QueuedNotifier) Notify(_ context.Context, n models.Notification) error {
	if _, err := q.queue.Enqueue(n); err != nil {
		return fmt.Errorf("queue notification: %w", err)
	}
	return nil
}
