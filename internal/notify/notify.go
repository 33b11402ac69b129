// notify доставляет коды подтверждения владельцам email.
//
// Сам сервис писем не отправляет: KafkaSender публикует событие в топик,
// который читает внешний почтовый воркер. LogSender используется, когда
// брокеры не сконфигурированы (локальная разработка, тесты).
package notify

import "time"

// VerificationCode — событие о выданном коде подтверждения.
type VerificationCode struct {
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}
