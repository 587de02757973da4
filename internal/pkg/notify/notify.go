// Package notify delivers owner and user notifications.
//
// Workflows never call a Notifier directly; they hand a Message to a
// Dispatcher after their durable writes, and delivery failures stay out
// of the workflow result.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/internal/pkg/metrics/prom"
)

// Status change notification types
const (
	KindApproved  = "approved"
	KindRejected  = "rejected"
	KindSuspended = "suspended"
)

// StatusKind maps a lifecycle status to the notification type sent to the owner.
// DRAFT, PENDING and DEACTIVATED produce no notification.
func StatusKind(status models.BusinessStatus) (string, bool) {
	switch status {
	case models.BusinessStatusActive:
		return KindApproved, true
	case models.BusinessStatusRejected:
		return KindRejected, true
	case models.BusinessStatusSuspended:
		return KindSuspended, true
	}
	return "", false
}

type StatusChange struct {
	BusinessID   uint                  `json:"business_id"`
	BusinessName string                `json:"business_name"`
	OwnerEmail   string                `json:"owner_email"`
	OwnerName    string                `json:"owner_name"`
	Status       models.BusinessStatus `json:"status"`
	Kind         string                `json:"kind"`
	Reason       string                `json:"reason,omitempty"`
}

type Welcome struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type LeadReceived struct {
	BusinessID   uint   `json:"business_id"`
	BusinessName string `json:"business_name"`
	OwnerEmail   string `json:"owner_email"`
	LeadID       uint   `json:"lead_id"`
	LeadName     string `json:"lead_name"`
	LeadEmail    string `json:"lead_email"`
	Message      string `json:"message"`
	Priority     string `json:"priority"`
}

type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Notifier sends a single notification and returns a delivery id
type Notifier interface {
	SendBusinessStatusChange(ctx context.Context, msg StatusChange) (string, error)
	SendWelcome(ctx context.Context, msg Welcome) (string, error)
	SendLeadReceived(ctx context.Context, msg LeadReceived) (string, error)
	SendEmail(ctx context.Context, msg Email) (string, error)
}

// Kind identifies the payload carried by a Message
type Kind string

const (
	KindStatusChange Kind = "business_status_change"
	KindWelcome      Kind = "welcome"
	KindLeadReceived Kind = "lead_received"
	KindEmail        Kind = "email"
)

// Message is one pending notification. Exactly one payload matches Kind.
type Message struct {
	Kind         Kind          `json:"kind"`
	StatusChange *StatusChange `json:"status_change,omitempty"`
	Welcome      *Welcome      `json:"welcome,omitempty"`
	LeadReceived *LeadReceived `json:"lead_received,omitempty"`
	Email        *Email        `json:"email,omitempty"`
}

// Recipient returns the address the message goes to
func (m Message) Recipient() string {
	switch {
	case m.StatusChange != nil:
		return m.StatusChange.OwnerEmail
	case m.Welcome != nil:
		return m.Welcome.Email
	case m.LeadReceived != nil:
		return m.LeadReceived.OwnerEmail
	case m.Email != nil:
		return m.Email.To
	}
	return ""
}

// Dispatcher accepts messages for delivery. An error means the message was
// not accepted; it never reflects the outcome of a later delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Deliver sends msg through n and records the outcome
func Deliver(ctx context.Context, n Notifier, msg Message) (string, error) {
	id, err := deliver(ctx, n, msg)
	result := "sent"
	if err != nil {
		result = "failed"
	}
	prom.Notifications.WithLabelValues(string(msg.Kind), result).Inc()
	return id, err
}

func deliver(ctx context.Context, n Notifier, msg Message) (string, error) {
	switch msg.Kind {
	case KindStatusChange:
		if msg.StatusChange != nil {
			return n.SendBusinessStatusChange(ctx, *msg.StatusChange)
		}
	case KindWelcome:
		if msg.Welcome != nil {
			return n.SendWelcome(ctx, *msg.Welcome)
		}
	case KindLeadReceived:
		if msg.LeadReceived != nil {
			return n.SendLeadReceived(ctx, *msg.LeadReceived)
		}
	case KindEmail:
		if msg.Email != nil {
			return n.SendEmail(ctx, *msg.Email)
		}
	default:
		return "", fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
	return "", fmt.Errorf("notification %q has no payload", msg.Kind)
}

// InlineDispatcher delivers synchronously in the calling goroutine
type InlineDispatcher struct {
	Notifier Notifier
}

func (d InlineDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if d.Notifier == nil {
		return errors.New("no notifier configured")
	}
	_, err := Deliver(ctx, d.Notifier, msg)
	return err
}
