// Package notify provides notification delivery for alerts and digests.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/PatelGH0512/stocklabs/internal/config"
	apperrors "github.com/PatelGH0512/stocklabs/internal/errors"
	"github.com/PatelGH0512/stocklabs/internal/models"
	"github.com/PatelGH0512/stocklabs/pkg/utils"
)

// AlertNotification carries everything needed to render an alert message.
type AlertNotification struct {
	Email        string
	Symbol       string
	Company      string
	Condition    models.AlertCondition
	TargetPrice  float64
	CurrentPrice float64
	Timestamp    time.Time
}

// Notifier delivers messages to users. Delivery failures are returned to the
// caller so it can decide whether to advance alert state.
type Notifier interface {
	SendAlert(ctx context.Context, n AlertNotification) error
	SendDigest(ctx context.Context, email, date, content string) error
}

// Channel is a single delivery transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, m Message) error
	IsEnabled() bool
}

// Message is a rendered notification.
type Message struct {
	Recipient string
	Subject   string
	Body      string
	Data      map[string]interface{}
}

// MultiNotifier renders notifications and fans them out to its channels.
type MultiNotifier struct {
	channels []Channel
}

// NewMultiNotifier creates a notifier from configuration. The email channel
// is the primary transport; a webhook channel is added when configured.
func NewMultiNotifier(mail config.MailConfig, notifications config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{}
	if mail.Enabled {
		mn.channels = append(mn.channels, NewEmailChannel(mail))
	}
	if notifications.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookChannel(notifications.Webhook))
	}
	return mn
}

// AddChannel adds a delivery channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.channels = append(mn.channels, ch)
}

// SendAlert renders and delivers a price alert notification.
func (mn *MultiNotifier) SendAlert(ctx context.Context, n AlertNotification) error {
	var direction string
	switch n.Condition {
	case models.ConditionBelow:
		direction = "dropped to target"
	default:
		direction = "reached target"
	}

	subject := fmt.Sprintf("%s price %s (%s)", n.Symbol, direction, utils.FormatPrice(n.TargetPrice))
	body := fmt.Sprintf(
		"%s (%s)\nCondition: price %s %s\nCurrent price: %s\nTime: %s\n",
		n.Company, n.Symbol,
		n.Condition, utils.FormatPrice(n.TargetPrice),
		utils.FormatPrice(n.CurrentPrice),
		utils.FormatTimestamp(n.Timestamp),
	)

	return mn.send(ctx, Message{
		Recipient: n.Email,
		Subject:   subject,
		Body:      body,
		Data: map[string]interface{}{
			"symbol":        n.Symbol,
			"company":       n.Company,
			"condition":     string(n.Condition),
			"target_price":  n.TargetPrice,
			"current_price": n.CurrentPrice,
		},
	})
}

// SendDigest delivers a market news digest.
func (mn *MultiNotifier) SendDigest(ctx context.Context, email, date, content string) error {
	return mn.send(ctx, Message{
		Recipient: email,
		Subject:   fmt.Sprintf("Market news summary - %s", date),
		Body:      content,
	})
}

func (mn *MultiNotifier) send(ctx context.Context, m Message) error {
	var errs []string
	sent := false
	for _, ch := range mn.channels {
		if !ch.IsEnabled() {
			continue
		}
		sent = true
		if err := ch.Send(ctx, m); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
		}
	}
	if !sent {
		return fmt.Errorf("%w: no notification channel enabled", apperrors.ErrNotConfigured)
	}
	if len(errs) > 0 {
		return apperrors.NewDeliveryError("multi", m.Recipient, fmt.Errorf("%s", strings.Join(errs, "; ")))
	}
	return nil
}

// EmailChannel delivers messages over SMTP.
type EmailChannel struct {
	host     string
	port     int
	username string
	password string
	from     string
	enabled  bool
}

// NewEmailChannel creates an SMTP email channel.
func NewEmailChannel(cfg config.MailConfig) *EmailChannel {
	return &EmailChannel{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		enabled:  cfg.Enabled && cfg.SMTPHost != "" && cfg.From != "",
	}
}

// Name returns the channel name.
func (e *EmailChannel) Name() string {
	return "email"
}

// IsEnabled returns whether the channel is configured.
func (e *EmailChannel) IsEnabled() bool {
	return e.enabled
}

// Send delivers the message to its recipient.
func (e *EmailChannel) Send(ctx context.Context, m Message) error {
	if m.Recipient == "" {
		return fmt.Errorf("missing recipient")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		e.from, m.Recipient, m.Subject, m.Body)

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, e.from, []string{m.Recipient}, []byte(msg))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return apperrors.NewDeliveryError("email", m.Recipient, err)
		}
		return nil
	}
}

// WebhookChannel posts messages as JSON to a configured URL.
type WebhookChannel struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookChannel creates a webhook channel.
func NewWebhookChannel(cfg config.WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the channel name.
func (w *WebhookChannel) Name() string {
	return "webhook"
}

// IsEnabled returns whether the channel is configured.
func (w *WebhookChannel) IsEnabled() bool {
	return w.enabled
}

// Send posts the message to the webhook URL.
func (w *WebhookChannel) Send(ctx context.Context, m Message) error {
	payload := map[string]interface{}{
		"recipient": m.Recipient,
		"subject":   m.Subject,
		"body":      m.Body,
		"data":      m.Data,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return apperrors.NewDeliveryError("webhook", m.Recipient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewDeliveryError("webhook", m.Recipient, fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}
