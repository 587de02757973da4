package lifecycle

import (
	"github.com/ManuelReschke/BizFox/app/models"
)

// Mode selects how admin status changes are validated
type Mode string

const (
	// ModeStrict only allows the moderation table below.
	ModeStrict Mode = "strict"
	// ModePermissive allows any known status to follow any other.
	ModePermissive Mode = "permissive"
)

// ParseMode falls back to strict for anything but "permissive"
func ParseMode(s string) Mode {
	if Mode(s) == ModePermissive {
		return ModePermissive
	}
	return ModeStrict
}

// Admin moderation transitions. DEACTIVATED is reachable from every state and
// nothing leaves REJECTED or DEACTIVATED.
var transitions = map[models.BusinessStatus][]models.BusinessStatus{
	models.BusinessStatusDraft:     {models.BusinessStatusActive, models.BusinessStatusRejected},
	models.BusinessStatusPending:   {models.BusinessStatusActive, models.BusinessStatusRejected},
	models.BusinessStatusActive:    {models.BusinessStatusSuspended},
	models.BusinessStatusSuspended: {models.BusinessStatusActive},
}

// CanTransition reports whether an admin may move a business from one status to another.
// Re-applying the current status is always allowed.
func CanTransition(mode Mode, from, to models.BusinessStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if mode == ModePermissive {
		return true
	}
	if to == models.BusinessStatusDeactivated {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
