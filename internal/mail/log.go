package mail

import (
	"context"

	"github.com/ntcogk/auth-server/internal/logger"
	"github.com/ntcogk/auth-server/internal/model"
)

// LogSender writes messages to the log instead of delivering them. The text
// body is logged at debug level so codes and links are usable locally.
type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(logger *logger.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg model.Message) error {
	s.logger.InfoContext(ctx, "Mail: message not delivered (log driver)",
		"to", logger.MaskEmail(msg.To),
		"subject", msg.Subject)
	s.logger.DebugContext(ctx, "Mail: message body", "text", msg.Text)

	return nil
}
