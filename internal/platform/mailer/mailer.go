// Package mailer delivers transactional email (password reset links) through
// an HTTP mail API.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Message is one outbound email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Mailer sends a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPMailer posts messages as JSON to {baseURL}/send.
type HTTPMailer struct {
	client *resty.Client
	from   string
}

func NewHTTPMailer(baseURL, apiKey, from string) *HTTPMailer {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPMailer{client: client, from: from}
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (m *HTTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.From == "" {
		msg.From = m.from
	}
	var out sendResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&out).
		SetError(&out).
		Post("/send")
	if err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	if resp.IsError() {
		return fmt.Errorf("mail api returned %d: %s", resp.StatusCode(), out.Message)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them. Used when
// MAIL_API_URL is unset.
type LogMailer struct {
	logger zerolog.Logger
}

func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("mail not sent: no mail api configured")
	return nil
}
