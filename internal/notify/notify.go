// notify отвечает за доставку писем с одноразовыми ссылками
// (подтверждение e-mail, сброс пароля).
package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/matchpoint-app/auth-service/internal/config"
)

// Notifier — контракт доставки писем. Токен передаётся в открытом виде:
// он попадает в ссылку письма и нигде больше не сохраняется.
type Notifier interface {
	SendConfirmation(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// Noop — заглушка для тестов и локального запуска без SMTP.
type Noop struct{}

func (Noop) SendConfirmation(_ context.Context, _, _ string) error  { return nil }
func (Noop) SendPasswordReset(_ context.Context, _, _ string) error { return nil }

// SMTPMailer отправляет письма через обычный SMTP с PLAIN-аутентификацией.
type SMTPMailer struct {
	cfg config.MailConfig
}

// NewSMTPMailer создаёт mailer поверх конфигурации почты.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendConfirmation отправляет письмо со ссылкой подтверждения e-mail.
func (m *SMTPMailer) SendConfirmation(ctx context.Context, email, token string) error {
	const op = "notify.SMTPMailer.SendConfirmation"

	link := m.actionLink("/confirm", url.Values{"token": {token}})

	body := fmt.Sprintf(
		"Здравствуйте!\r\n\r\n"+
			"Для подтверждения адреса перейдите по ссылке:\r\n%s\r\n\r\n"+
			"Ссылка действует ограниченное время. Если вы не регистрировались — просто проигнорируйте это письмо.\r\n",
		link,
	)

	if err := m.send(ctx, email, "Подтверждение адреса", body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SendPasswordReset отправляет письмо со ссылкой сброса пароля.
// В ссылку входит и e-mail: сброс выполняется по паре {e-mail, токен}.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	const op = "notify.SMTPMailer.SendPasswordReset"

	link := m.actionLink("/password/reset", url.Values{
		"email": {email},
		"token": {token},
	})

	body := fmt.Sprintf(
		"Здравствуйте!\r\n\r\n"+
			"Для смены пароля перейдите по ссылке:\r\n%s\r\n\r\n"+
			"Ссылка действует ограниченное время. Если вы не запрашивали смену пароля — проигнорируйте это письмо.\r\n",
		link,
	)

	if err := m.send(ctx, email, "Сброс пароля", body); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// actionLink собирает публичную ссылку фронтенда с экранированными параметрами.
func (m *SMTPMailer) actionLink(path string, q url.Values) string {
	base := strings.TrimRight(m.cfg.LinkBaseURL, "/")
	return base + path + "?" + q.Encode()
}

// send выполняет собственно SMTP-доставку. net/smtp не принимает контекст,
// поэтому отмену уважаем проверкой перед отправкой.
func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"",
		body,
	}, "\r\n")

	addr := net.JoinHostPort(m.cfg.SMTPHost, m.cfg.SMTPPort)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.SMTPHost)
	}

	return smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg))
}
