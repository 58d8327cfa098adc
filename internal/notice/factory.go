package notice

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/circdesk/backend/internal/config"
)

// NewSenderFromConfig picks the sender for NOTICE_SENDER_MODE. The returned
// close func is never nil.
func NewSenderFromConfig(cfg config.Config, logger *slog.Logger) (Sender, func(), error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.NoticeSenderMode))
	switch mode {
	case "", "log":
		return NewLogSender(logger), func() {}, nil
	case "amqp":
		s, err := NewAMQPSender(cfg.AMQPURL, cfg.NoticeExchange, cfg.NoticeQueue, cfg.NoticeRoutingKey)
		if err != nil {
			return nil, func() {}, err
		}
		return s, s.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("invalid NOTICE_SENDER_MODE: %s", cfg.NoticeSenderMode)
	}
}
