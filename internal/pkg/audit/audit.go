// Package audit appends privileged mutations to the admin action log.
package audit

import (
	"gorm.io/datatypes"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
)

// Recorder writes one log row per call. There is no update or delete path.
type Recorder struct {
	repo repository.AuditLogRepository
}

func NewRecorder(repo repository.AuditLogRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Record appends an entry attributed to actor. Anonymous actors (dev bypass) are stored with a nil admin id.
func (r *Recorder) Record(actor access.Principal, action, targetType, targetID string, details map[string]any) (*models.AdminActionLog, error) {
	entry := &models.AdminActionLog{
		AdminID:    actor.IDPtr(),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    datatypes.JSONMap(details),
	}
	if err := r.repo.Create(entry); err != nil {
		return nil, err
	}
	return entry, nil
}
