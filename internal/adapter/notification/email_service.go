package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/siteledger/siteledger/internal/ports"
	"github.com/siteledger/siteledger/internal/service/logger"
)

// EmailService implements the notification collaborator over SMTP.
// Delivery is per-recipient: one failure is reported in its result and does
// not abort the remaining sends.
type EmailService struct {
	host string
	port int
	from string
	auth smtp.Auth
	log  logger.Logger

	// send is swapped in tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// EmailConfig configures the SMTP transport
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewEmailService creates the email adapter
func NewEmailService(config EmailConfig, log logger.Logger) *EmailService {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &EmailService{
		host: config.Host,
		port: config.Port,
		from: config.From,
		auth: auth,
		log:  log,
		send: smtp.SendMail,
	}
}

// Send dispatches a templated message and reports per-recipient results
func (s *EmailService) Send(ctx context.Context, recipients []string, templateData map[string]string) ([]ports.RecipientResult, error) {
	if len(recipients) == 0 {
		return nil, nil
	}
	subject, body := renderTemplate(templateData)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	results := make([]ports.RecipientResult, 0, len(recipients))
	for _, recipient := range recipients {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		msg := buildMessage(s.from, recipient, subject, body)
		err := s.send(addr, s.auth, s.from, []string{recipient}, msg)
		result := ports.RecipientResult{Recipient: recipient, Success: err == nil}
		if err != nil {
			result.Error = err.Error()
			s.log.Warn(ctx, "email delivery failed", map[string]interface{}{
				"recipient": recipient, "error": err.Error(),
			})
		}
		results = append(results, result)
	}
	return results, nil
}

var templates = map[string]struct {
	subject string
	lines   []string
}{
	"pending_change_created": {
		subject: "New pending quantity change",
		lines:   []string{"Item: {item_name}", "Requested quantity: {requested} (was {original})", "Reason: {reason}"},
	},
	"team_invitation": {
		subject: "You have been invited to a project",
		lines:   []string{"Role: {role}", "Use this invitation code to join: {token}"},
	},
}

func renderTemplate(data map[string]string) (subject, body string) {
	tpl, ok := templates[data["template"]]
	if !ok {
		return "Project update", data["message"]
	}
	lines := make([]string, len(tpl.lines))
	for i, line := range tpl.lines {
		for key, value := range data {
			line = strings.ReplaceAll(line, "{"+key+"}", value)
		}
		lines[i] = line
	}
	return tpl.subject, strings.Join(lines, "\r\n")
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
