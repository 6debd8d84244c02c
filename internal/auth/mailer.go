package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// SMTPConfig はメール送信に使うSMTPサーバーの接続情報。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer は go-mail でパスワードリセットメールを送信する。
type SMTPMailer struct {
	config SMTPConfig
}

// NewSMTPMailer はSMTP経由のメーラーを生成する。
func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: config}
}

// SendPasswordReset はリセットリンク入りのメールを送信する。
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, toEmail, resetURL string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.config.From); err != nil {
		return fmt.Errorf("failed to set from address: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("failed to set to address: %w", err)
	}
	msg.Subject("パスワード再設定のご案内")
	msg.SetBodyString(mail.TypeTextPlain, fmt.Sprintf(
		"パスワード再設定のリクエストを受け付けました。\n\n以下のリンクから新しいパスワードを設定してください。\n%s\n\nこのリクエストに心当たりがない場合は、このメールを無視してください。\n",
		resetURL,
	))

	opts := []mail.Option{mail.WithPort(m.config.Port)}
	if m.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.config.Username),
			mail.WithPassword(m.config.Password),
		)
	}
	client, err := mail.NewClient(m.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// NopMailer はSMTPが未設定の環境向けのメーラー。送信内容をログに残すだけで成功扱いにする。
type NopMailer struct {
	logger *slog.Logger
}

// NewNopMailer はログ出力のみのメーラーを生成する。
func NewNopMailer(logger *slog.Logger) *NopMailer {
	return &NopMailer{logger: logger}
}

// SendPasswordReset はリセットURLをログに記録する。
func (m *NopMailer) SendPasswordReset(_ context.Context, toEmail, resetURL string) error {
	m.logger.Info("password reset mail (smtp not configured)",
		slog.String("to", toEmail),
		slog.String("reset_url", resetURL),
	)
	return nil
}

var _ Mailer = (*SMTPMailer)(nil)
var _ Mailer = (*NopMailer)(nil)
