package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/BartekTra/portfolioCreator-sub000/internal/config"
)

// Sender 通过 SMTP 发送外发邮件。Host 为空时视为未配置，发送直接报错。
type Sender struct {
	cfg    config.SMTPConfig
	server string
	auth   smtp.Auth
}

// NewSender 构造 Sender。
func NewSender(cfg config.SMTPConfig) *Sender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Sender{
		cfg:    cfg,
		server: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:   auth,
	}
}

// IsConfigured 判断 SMTP 是否已配置。
func (s *Sender) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.From != ""
}

// Send 发送一封纯文本邮件。
func (s *Sender) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("smtp is not configured")
	}

	from := s.cfg.From
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	}

	msg := strings.Join([]string{
		"To: " + to,
		"From: " + from,
		"Subject: " + subject,
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	return smtp.SendMail(s.server, s.auth, s.cfg.From, []string{to}, []byte(msg))
}
