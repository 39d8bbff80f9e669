package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender delivers one rendered HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender creates a sender for the given server. Auth is used only
// when a username is set.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, buildMessage(s.cfg.From, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

type templateData struct {
	PatientName      string
	Date             string
	Time             string
	ProfessionalName string
	ClinicName       string
}

// Mailer turns queued events into patient emails.
type Mailer struct {
	sender     Sender
	templates  *template.Template
	clinicName string
	logger     zerolog.Logger
}

// NewMailer parses the embedded templates.
func NewMailer(sender Sender, clinicName string, logger zerolog.Logger) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Mailer{sender: sender, templates: tmpl, clinicName: clinicName, logger: logger}, nil
}

// Handle renders the template for ev and mails it to the patient.
func (m *Mailer) Handle(ctx context.Context, ev Event) error {
	var name, subject string
	switch ev.Type {
	case EventAppointmentRequested:
		name, subject = "appointment_requested.html", "Solicitud de turno registrada"
	case EventAppointmentConfirmed:
		name, subject = "appointment_confirmed.html", "Turno confirmado"
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	if ev.PatientEmail == "" {
		m.logger.Debug().Str("appointment_id", ev.AppointmentID.String()).Msg("event without recipient, dropping")
		return nil
	}

	var body bytes.Buffer
	err := m.templates.ExecuteTemplate(&body, name, templateData{
		PatientName:      ev.PatientName,
		Date:             ev.Date,
		Time:             ev.Time,
		ProfessionalName: ev.ProfessionalName,
		ClinicName:       m.clinicName,
	})
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	if err := m.sender.Send(ctx, ev.PatientEmail, subject, body.String()); err != nil {
		return err
	}

	m.logger.Info().
		Str("event_type", string(ev.Type)).
		Str("appointment_id", ev.AppointmentID.String()).
		Msg("notification mailed")
	return nil
}
