// Package mailer delivers transactional email through an ordered chain of
// providers, ending with one that only logs.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"campus-mobility/pkg/logger"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender is a single delivery provider.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// ErrAllProvidersFailed is returned when no provider in the chain accepted the message.
var ErrAllProvidersFailed = errors.New("mailer: all providers failed")

// Chain tries each sender in order and stops at the first success.
type Chain struct {
	senders []Sender
	// OnDelivered, when set, is told which provider accepted a message.
	OnDelivered func(provider string)
}

// NewChain builds a chain. Nil senders are skipped.
func NewChain(senders ...Sender) *Chain {
	c := &Chain{}
	for _, s := range senders {
		if s != nil {
			c.senders = append(c.senders, s)
		}
	}
	return c
}

// Providers returns the names of the configured senders in order.
func (c *Chain) Providers() []string {
	out := make([]string, len(c.senders))
	for i, s := range c.senders {
		out[i] = s.Name()
	}
	return out
}

// Send delivers msg and returns the name of the provider that took it.
func (c *Chain) Send(ctx context.Context, msg Message) (string, error) {
	for _, s := range c.senders {
		err := s.Send(ctx, msg)
		if err == nil {
			if c.OnDelivered != nil {
				c.OnDelivered(s.Name())
			}
			return s.Name(), nil
		}
		logger.Warn(ctx, "email provider failed, falling back",
			zap.String("provider", s.Name()),
			zap.String("to", msg.To),
			zap.Error(err),
		)
	}
	return "", ErrAllProvidersFailed
}

// VerificationEmail renders the signup/resend code email.
func VerificationEmail(to, code string) Message {
	return Message{
		To:      to,
		Subject: "Campus Mobility - Verify Your Email",
		Text: fmt.Sprintf("Welcome to Campus Mobility!\n\nYour verification code is: %s\n\n"+
			"This code expires in 1 hour.\n\nIf you didn't create an account, you can ignore this email.\n", code),
		HTML: fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif;">
<h2>Welcome to Campus Mobility!</h2>
<p>Your verification code is:</p>
<p style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">%s</p>
<p>This code expires in 1 hour.</p>
<p style="color: #888;">If you didn't create an account, you can ignore this email.</p>
</body></html>`, code),
	}
}

// PasswordResetEmail renders the forgot-password code email.
func PasswordResetEmail(to, code string) Message {
	return Message{
		To:      to,
		Subject: "Campus Mobility - Password Reset Request",
		Text: fmt.Sprintf("We received a request to reset your password.\n\nYour reset code is: %s\n\n"+
			"This code expires in 1 hour. If you didn't request a reset, ignore this email.\n", code),
		HTML: fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif;">
<h2>Password Reset</h2>
<p>We received a request to reset your password. Your reset code is:</p>
<p style="font-size: 28px; font-weight: bold; letter-spacing: 4px;">%s</p>
<p>This code expires in 1 hour. If you didn't request a reset, ignore this email.</p>
</body></html>`, code),
	}
}
