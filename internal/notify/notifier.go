// Package notify は記事公開時の購読者向けメール通知を提供する。
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"
)

// Notifier は購読者へ新着記事を知らせるインターフェース。
type Notifier interface {
	NotifySubscribers(ctx context.Context, emails []string, title, postURL string) error
}

// Config はSMTP接続設定。
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured は送信に必要な項目がすべて設定されているかを返す。
func (c Config) Configured() bool {
	return c.Host != "" && c.Port > 0 && c.Username != "" && c.Password != "" && c.From != ""
}

// sender はgo-mailのClientのうち使用するメソッド。
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier はgo-mailで1通のメール（宛先はすべてBcc）を送信する実装。
type SMTPNotifier struct {
	cfg    Config
	client sender
	logger *slog.Logger
}

// New は設定に応じたNotifierを返す。SMTP設定が不完全な場合は何もしないNotifierを返す。
func New(cfg Config, logger *slog.Logger) (Notifier, error) {
	if !cfg.Configured() {
		logger.Info("smtp not configured, subscriber notifications disabled")
		return Nop{}, nil
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPNotifier{cfg: cfg, client: client, logger: logger}, nil
}

// NotifySubscribers は新着記事のタイトルとURLを購読者に送信する。宛先が空の場合は何もしない。
func (n *SMTPNotifier) NotifySubscribers(ctx context.Context, emails []string, title, postURL string) error {
	if len(emails) == 0 {
		return nil
	}

	msg, err := n.buildMessage(emails, title, postURL)
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	n.logger.Info("subscriber notification sent",
		slog.Int("recipients", len(emails)),
		slog.String("post_url", postURL),
	)
	return nil
}

// buildMessage は通知メールを組み立てる。購読者同士のアドレスが見えないよう全員をBccに入れる。
func (n *SMTPNotifier) buildMessage(emails []string, title, postURL string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(n.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	if err := msg.Bcc(emails...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject("New post: " + title)
	msg.SetBodyString(mail.TypeTextPlain, Body(title, postURL))
	return msg, nil
}

// Body は通知メールの本文を返す。
func Body(title, postURL string) string {
	var b strings.Builder
	b.WriteString("A new post has been published on the blog:\n\n")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(postURL)
	b.WriteString("\n\nTo stop receiving these emails, unsubscribe on the site.\n")
	return b.String()
}

// Nop は何も送信しないNotifier。
type Nop struct{}

// NotifySubscribers は何もしない。
func (Nop) NotifySubscribers(context.Context, []string, string, string) error {
	return nil
}

var (
	_ Notifier = (*SMTPNotifier)(nil)
	_ Notifier = Nop{}
)
