// redact маскирует чувствительные данные перед записью в лог:
// e-mail сохраняет домен, код подтверждения сохраняет только первый символ.
package redact

import "strings"

// Email маскирует e-mail для логирования.
//
// Строка должна содержать ровно один '@', иначе возвращается "***".
// Локальная часть сокращается до двух первых рун + "***"; если она
// не длиннее двух рун, остаётся только "***". Домен не меняется.
//
//	"foobar@example.com" -> "fo***@example.com"
//	"ab@ex.com"          -> "***@ex.com"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Code маскирует одноразовый код, оставляя первый символ.
func Code(s string) string {
	if s == "" {
		return ""
	}

	r := []rune(s)
	return string(r[0]) + strings.Repeat("*", len(r)-1)
}
