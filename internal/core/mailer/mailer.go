package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// RegistrationMail 报名确认邮件的内容
type RegistrationMail struct {
	To        string
	Name      string
	Title     string
	EventDate time.Time
	EventTime string
	Location  string
}

// Sender 发送报名确认邮件；调用方把失败当作 best-effort 处理
type Sender interface {
	SendRegistrationConfirmation(ctx context.Context, m RegistrationMail) error
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type SMTP struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTP {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTP{cfg: cfg}
}

func (s *SMTP) SendRegistrationConfirmation(ctx context.Context, m RegistrationMail) error {
	body, err := Render(m)
	if err != nil {
		return err
	}
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(Subject(m))
	msg.SetBodyString(gomail.TypeTextHTML, body)

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Noop 未配置 SMTP 时只记日志
type Noop struct {
	Log *zap.Logger
}

func (n Noop) SendRegistrationConfirmation(_ context.Context, m RegistrationMail) error {
	if n.Log != nil {
		n.Log.Debug("mail disabled, skip registration confirmation",
			zap.String("to", m.To), zap.String("event", m.Title))
	}
	return nil
}

func Subject(m RegistrationMail) string {
	return "Registration confirmed: " + m.Title
}

var confirmationTpl = template.Must(template.New("confirmation").Parse(`<!doctype html>
<html><body>
<p>Hi {{.Name}},</p>
<p>Your registration for <strong>{{.Title}}</strong> has been received.</p>
<ul>
<li>Date: {{.EventDate.Format "2006-01-02"}}{{if .EventTime}} {{.EventTime}}{{end}}</li>
{{if .Location}}<li>Location: {{.Location}}</li>{{end}}
</ul>
<p>See you there!</p>
</body></html>`))

func Render(m RegistrationMail) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTpl.Execute(&buf, m); err != nil {
		return "", fmt.Errorf("render confirmation: %w", err)
	}
	return buf.String(), nil
}
