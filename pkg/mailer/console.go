package mailer

import (
	"context"

	"go.uber.org/zap"

	"campus-mobility/pkg/logger"
)

// Console writes messages to the log. It never fails, so it belongs last in a chain.
type Console struct{}

func (Console) Name() string { return "console" }

func (Console) Send(ctx context.Context, msg Message) error {
	logger.Info(ctx, "email (console delivery)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}
