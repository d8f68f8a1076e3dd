package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGrid delivers through the SendGrid v3 mail API.
type SendGrid struct {
	apiKey   string
	host     string
	fromAddr string
	fromName string
}

// NewSendGrid returns nil when apiKey or fromAddr is empty.
func NewSendGrid(apiKey, fromAddr, fromName, host string) *SendGrid {
	if apiKey == "" || fromAddr == "" {
		return nil
	}
	return &SendGrid{apiKey: apiKey, host: host, fromAddr: fromAddr, fromName: fromName}
}

func (s *SendGrid) Name() string { return "sendgrid" }

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	to := mail.NewEmail("", msg.To)
	m := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	req := sendgrid.GetRequest(s.apiKey, sendGridEndpoint, s.host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
