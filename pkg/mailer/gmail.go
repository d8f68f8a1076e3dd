package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Gmail delivers through the Gmail API using a stored OAuth token.
type Gmail struct {
	svc    *gmail.Service
	sender string
}

// NewGmail builds the Gmail sender from an OAuth client credentials JSON and
// a previously authorized token JSON. Either being empty yields (nil, nil).
func NewGmail(ctx context.Context, credentialsJSON, tokenJSON, sender string) (*Gmail, error) {
	if credentialsJSON == "" || tokenJSON == "" {
		return nil, nil
	}
	cfg, err := google.ConfigFromJSON([]byte(credentialsJSON), gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("gmail credentials: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(tokenJSON), &tok); err != nil {
		return nil, fmt.Errorf("gmail token: %w", err)
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	if sender == "" {
		sender = "me"
	}
	return &Gmail{svc: svc, sender: sender}, nil
}

func (g *Gmail) Name() string { return "gmail" }

func (g *Gmail) Send(ctx context.Context, msg Message) error {
	raw, err := buildMIME(msg)
	if err != nil {
		return err
	}
	_, err = g.svc.Users.Messages.Send(g.sender, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail: %w", err)
	}
	return nil
}

// buildMIME renders msg as multipart/alternative with text and HTML parts.
func buildMIME(msg Message) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct{ ctype, content string }{
		{"text/plain; charset=UTF-8", msg.Text},
		{"text/html; charset=UTF-8", msg.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "To: %s\r\n", msg.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	out.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&out, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
