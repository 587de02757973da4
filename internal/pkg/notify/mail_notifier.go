package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/ManuelReschke/BizFox/internal/pkg/mail"
)

var templates = template.Must(template.New("mail").Parse(`
{{define "status_approved"}}<p>Hello {{.OwnerName}},</p>
<p>Your business <strong>{{.BusinessName}}</strong> has been approved and is now listed.</p>{{end}}
{{define "status_rejected"}}<p>Hello {{.OwnerName}},</p>
<p>Your business <strong>{{.BusinessName}}</strong> was not approved.</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}{{end}}
{{define "status_suspended"}}<p>Hello {{.OwnerName}},</p>
<p>Your business <strong>{{.BusinessName}}</strong> has been suspended and is hidden from the directory.</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}{{end}}
{{define "welcome"}}<p>Welcome to {{.Site}}, {{.Name}}!</p>
<p>Your account is ready.</p>{{end}}
{{define "lead_received"}}<p>New inquiry for <strong>{{.BusinessName}}</strong> ({{.Priority}})</p>
<p>From: {{.LeadName}} &lt;{{.LeadEmail}}&gt;</p>
<blockquote>{{.Message}}</blockquote>{{end}}
`))

// MailNotifier renders templates and sends them through a mail.Sender,
// guarded by a circuit breaker so a dead SMTP server fails fast.
type MailNotifier struct {
	sender  mail.Sender
	breaker *gobreaker.CircuitBreaker
	site    string
}

func NewMailNotifier(sender mail.Sender, siteName string) *MailNotifier {
	settings := gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warnf("[Notify] circuit breaker %s changed from %s to %s", name, from.String(), to.String())
		},
	}
	return &MailNotifier{
		sender:  sender,
		breaker: gobreaker.NewCircuitBreaker(settings),
		site:    siteName,
	}
}

func (n *MailNotifier) send(ctx context.Context, to, subject, tmpl string, data any) (string, error) {
	if to == "" {
		return "", fmt.Errorf("no recipient for %s", tmpl)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var body bytes.Buffer
	if tmpl != "" {
		if err := templates.ExecuteTemplate(&body, tmpl, data); err != nil {
			return "", fmt.Errorf("render %s: %w", tmpl, err)
		}
	} else {
		body.WriteString(data.(string))
	}

	_, err := n.breaker.Execute(func() (interface{}, error) {
		return nil, n.sender.Send(to, subject, body.String())
	})
	if err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

func (n *MailNotifier) SendBusinessStatusChange(ctx context.Context, msg StatusChange) (string, error) {
	var subject string
	switch msg.Kind {
	case KindApproved:
		subject = fmt.Sprintf("%s is now live", msg.BusinessName)
	case KindRejected:
		subject = fmt.Sprintf("%s was not approved", msg.BusinessName)
	case KindSuspended:
		subject = fmt.Sprintf("%s has been suspended", msg.BusinessName)
	default:
		return "", fmt.Errorf("unsupported status notification %q", msg.Kind)
	}
	return n.send(ctx, msg.OwnerEmail, subject, "status_"+msg.Kind, msg)
}

func (n *MailNotifier) SendWelcome(ctx context.Context, msg Welcome) (string, error) {
	data := struct {
		Welcome
		Site string
	}{msg, n.site}
	return n.send(ctx, msg.Email, "Welcome to "+n.site, "welcome", data)
}

func (n *MailNotifier) SendLeadReceived(ctx context.Context, msg LeadReceived) (string, error) {
	subject := fmt.Sprintf("New inquiry for %s", msg.BusinessName)
	return n.send(ctx, msg.OwnerEmail, subject, "lead_received", msg)
}

// SendEmail sends an admin-authored body as is
func (n *MailNotifier) SendEmail(ctx context.Context, msg Email) (string, error) {
	return n.send(ctx, msg.To, msg.Subject, "", msg.Body)
}
