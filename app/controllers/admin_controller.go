package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/audit"
	"github.com/ManuelReschke/BizFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/BizFox/internal/pkg/notify"
	"github.com/ManuelReschke/BizFox/internal/pkg/settings"
	"github.com/ManuelReschke/BizFox/internal/pkg/statistics"
	"github.com/ManuelReschke/BizFox/internal/pkg/usercontext"
)

// QueueInspector reports the notification queue state. *jobqueue.Queue satisfies it.
type QueueInspector interface {
	Snapshot(ctx context.Context) (*jobqueue.Snapshot, error)
}

// AdminController handles admin-related HTTP requests using repository pattern
type AdminController struct {
	repos      *repository.Repositories
	settings   *settings.Service
	stats      *statistics.Service
	recorder   *audit.Recorder
	dispatcher notify.Dispatcher
	queue      QueueInspector
}

// NewAdminController creates a new admin controller. queue is nil when
// notifications are delivered inline.
func NewAdminController(repos *repository.Repositories, ss *settings.Service, stats *statistics.Service, recorder *audit.Recorder, dispatcher notify.Dispatcher, queue QueueInspector) *AdminController {
	return &AdminController{
		repos:      repos,
		settings:   ss,
		stats:      stats,
		recorder:   recorder,
		dispatcher: dispatcher,
		queue:      queue,
	}
}

// HandleSettings returns all settings grouped by category
func (ac *AdminController) HandleSettings(c *fiber.Ctx) error {
	organized, err := ac.settings.Organized()
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(fiber.Map{"settings": organized})
}

type updateSettingsRequest struct {
	Settings map[string]settings.Input `json:"settings"`
}

// HandleSettingsUpdate upserts the given settings
func (ac *AdminController) HandleSettingsUpdate(c *fiber.Ctx) error {
	var req updateSettingsRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	updated, err := ac.settings.Update(usercontext.GetPrincipal(c), req.Settings)
	if err != nil {
		return respondError(c, err)
	}
	organized, err := ac.settings.Organized()
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(fiber.Map{"success": true, "updated": updated, "settings": organized})
}

type sendEmailRequest struct {
	To      string `json:"to" validate:"required,email,max=200"`
	Subject string `json:"subject" validate:"required,min=2,max=200"`
	Body    string `json:"body" validate:"required,min=2,max=20000"`
}

// HandleSendEmail hands a staff email to the dispatcher and audits it.
// Nothing is audited when the dispatcher refuses the message.
func (ac *AdminController) HandleSendEmail(c *fiber.Ctx) error {
	var req sendEmailRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	req.To = strings.TrimSpace(req.To)
	req.Subject = strings.TrimSpace(req.Subject)
	if err := apperror.NewValidator().Struct(req); err != nil {
		return respondError(c, apperror.FromValidator(err))
	}

	msg := notify.Message{Kind: notify.KindEmail, Email: &notify.Email{To: req.To, Subject: req.Subject, Body: req.Body}}
	if err := ac.dispatcher.Dispatch(c.UserContext(), msg); err != nil {
		log.Errorf("[Admin] email to %s not dispatched: %v", req.To, err)
		return respondError(c, apperror.Internal(err))
	}

	if _, err := ac.recorder.Record(usercontext.GetPrincipal(c), models.ActionEmailDispatch, models.TargetEmail, req.To, map[string]any{
		"subject": req.Subject,
	}); err != nil {
		return respondError(c, apperror.Internal(err))
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true})
}

// HandleQueue shows the notification queue
func (ac *AdminController) HandleQueue(c *fiber.Ctx) error {
	if ac.queue == nil {
		return c.JSON(fiber.Map{"mode": "inline"})
	}
	snapshot, err := ac.queue.Snapshot(c.UserContext())
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(fiber.Map{"mode": "queue", "queue": snapshot})
}

// HandleStats returns the uncached staff overview
func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	stats, err := ac.stats.Admin()
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(stats)
}

// HandleAuditLog lists audit entries, newest first
func (ac *AdminController) HandleAuditLog(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)
	filter := repository.AuditFilter{
		Action:     strings.ToUpper(c.Query("action")),
		TargetType: c.Query("target_type"),
		TargetID:   c.Query("target_id"),
	}

	items, total, err := ac.repos.AuditLog.List(filter, offset, limit)
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(listResponse{Items: items, Total: total, Page: page, Limit: limit})
}

// HandleUsers lists users, newest first
func (ac *AdminController) HandleUsers(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)

	users, err := ac.repos.User.List(offset, limit)
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	total, err := ac.repos.User.Count()
	if err != nil {
		return respondError(c, apperror.Internal(err))
	}
	return c.JSON(listResponse{Items: users, Total: total, Page: page, Limit: limit})
}

type updateUserRequest struct {
	Role   *models.Role `json:"role"`
	Status *string      `json:"status"`
}

// HandleUserUpdate changes the role or status of a user
func (ac *AdminController) HandleUserUpdate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req updateUserRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	actor := usercontext.GetPrincipal(c)
	if actor.Authenticated && actor.UserID == id {
		return respondError(c, apperror.Forbidden("you cannot change your own account"))
	}

	user, err := ac.repos.User.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperror.NotFound("user"))
		}
		return respondError(c, apperror.Internal(err))
	}

	details := map[string]any{}
	if req.Role != nil {
		if !req.Role.Valid() {
			return respondError(c, apperror.Validation("unknown role", apperror.FieldError{Field: "role", Message: "is not a known role"}))
		}
		details["previousRole"] = string(user.Role)
		details["newRole"] = string(*req.Role)
		user.Role = *req.Role
	}
	if req.Status != nil {
		switch *req.Status {
		case models.STATUS_ACTIVE, models.STATUS_INACTIVE, models.STATUS_DISABLED:
		default:
			return respondError(c, apperror.Validation("unknown status", apperror.FieldError{Field: "status", Message: "must be one of: active inactive disabled"}))
		}
		details["previousStatus"] = user.Status
		details["newStatus"] = *req.Status
		user.Status = *req.Status
	}
	if len(details) == 0 {
		return respondError(c, apperror.Validation("nothing to update"))
	}

	if err := ac.repos.User.Update(user); err != nil {
		return respondError(c, apperror.Internal(err))
	}
	if _, err := ac.recorder.Record(actor, models.ActionUserUpdate, models.TargetUser, strconv.FormatUint(uint64(user.ID), 10), details); err != nil {
		return respondError(c, apperror.Internal(err))
	}

	log.Infof("[Admin] user %d updated by user %d: %v", user.ID, actor.UserID, details)
	return c.JSON(fiber.Map{"user": user, "success": true})
}
