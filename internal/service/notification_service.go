package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/therafiali/internal-app-sub000/pkg/jobs"
	"github.com/therafiali/internal-app-sub000/pkg/messenger"
)

// Notification is a templated player message.
type Notification struct {
	SubscriberID string
	TeamCode     string
	Template     string
	Fields       map[string]string
}

// MessageSender delivers a rendered message.
type MessageSender interface {
	Send(ctx context.Context, msg messenger.Message) error
}

var notificationTemplates = template.Must(template.New("notifications").Option("missingkey=zero").Parse(`
{{define "recharge_processed"}}Your recharge {{.recharge_id}} of ${{.amount}} has been loaded to your game account.{{end}}
{{define "recharge_rejected"}}Your payment proof for recharge {{.recharge_id}} was rejected ({{.reason}}). Please send a new screenshot.{{end}}
{{define "recharge_completed"}}Recharge {{.recharge_id}} is complete. ${{.amount}} credited.{{end}}
{{define "redeem_queued"}}Your redeem {{.redeem_id}} for ${{.total}} is approved and queued for payment.{{end}}
{{define "redeem_paid"}}You received ${{.paid}} of ${{.total}} for redeem {{.redeem_id}}.{{end}}
{{define "redeem_completed"}}Redeem {{.redeem_id}} is fully paid: ${{.total}}.{{end}}
{{define "redeem_rejected"}}Your redeem {{.redeem_id}} was rejected. {{.reason}}{{end}}
{{define "transfer_completed"}}Transfer {{.transfer_id}} of ${{.amount}} from {{.from}} to {{.to}} is complete.{{end}}
{{define "password_reset"}}The password for {{.username}} on {{.platform}} has been reset.{{end}}
{{define "request_rejected"}}Your request {{.request_id}} was rejected. {{.reason}}{{end}}
`))

// RenderNotification produces the message text for n.
func RenderNotification(n Notification) (string, error) {
	var b strings.Builder
	if err := notificationTemplates.ExecuteTemplate(&b, n.Template, n.Fields); err != nil {
		return "", fmt.Errorf("render %s: %w", n.Template, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// NotificationService renders notifications and hands them to a background
// queue so request handlers never wait on the messaging platform.
type NotificationService struct {
	queue   *jobs.Queue[Notification]
	sender  MessageSender
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService builds the service and its delivery queue. Start must
// be called before notifications are accepted.
func NewNotificationService(sender MessageSender, metrics *MetricsService, cfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, metrics: metrics, logger: logger}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("notifications", s.deliver, cfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) { s.queue.Start(ctx) }

// Stop drains workers.
func (s *NotificationService) Stop() { s.queue.Stop() }

// Stats reports delivery counters.
func (s *NotificationService) Stats() jobs.Stats { return s.queue.Stats() }

// Notify enqueues n without blocking. A full queue drops the message.
func (s *NotificationService) Notify(_ context.Context, n Notification) {
	if err := s.queue.TryEnqueue(n); err != nil {
		s.metrics.RecordNotification(n.Template, "dropped")
		s.logger.Warn("notification dropped", zap.String("template", n.Template), zap.String("team", n.TeamCode), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job[Notification]) error {
	n := job.Payload
	text, err := RenderNotification(n)
	if err != nil {
		s.metrics.RecordNotification(n.Template, "invalid")
		s.logger.Error("notification template failed", zap.String("template", n.Template), zap.Error(err))
		return nil
	}
	err = s.sender.Send(ctx, messenger.Message{
		SubscriberID: n.SubscriberID,
		TeamCode:     n.TeamCode,
		Text:         text,
		CustomFields: n.Fields,
	})
	if err == nil {
		s.metrics.RecordNotification(n.Template, "sent")
		return nil
	}

	var statusErr *messenger.StatusError
	if errors.Is(err, messenger.ErrNoTeamToken) || errors.Is(err, messenger.ErrMissingSubscriber) ||
		(errors.As(err, &statusErr) && !statusErr.Retryable()) {
		s.metrics.RecordNotification(n.Template, "rejected")
		s.logger.Warn("notification not deliverable", zap.String("template", n.Template), zap.String("team", n.TeamCode), zap.Error(err))
		return nil
	}
	s.metrics.RecordNotification(n.Template, "retry")
	return err
}
