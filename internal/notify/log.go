package notify

import (
	"context"
	"log/slog"

	"github.com/pribylovaa/go-auth-service/internal/pkg/redact"
)

// LogSender пишет код в лог. Сам код печатается только при revealCode
// (окружение local), иначе в лог попадает лишь факт выдачи.
type LogSender struct {
	log        *slog.Logger
	revealCode bool
}

func NewLogSender(log *slog.Logger, revealCode bool) *LogSender {
	if log == nil {
		log = slog.Default()
	}

	return &LogSender{log: log, revealCode: revealCode}
}

func (s *LogSender) SendCode(_ context.Context, email, code string) error {
	if s.revealCode {
		s.log.Info("verification_code", slog.String("email", email), slog.String("code", code))
		return nil
	}

	s.log.Info("verification_code",
		slog.String("email", redact.Email(email)),
		slog.String("code", redact.Code(code)),
	)

	return nil
}
