package settings

import (
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/audit"
)

// Well-known keys
const (
	KeySiteTitle             = "site.title"
	KeySiteDescription       = "site.description"
	KeyModerationAutoApprove = "moderation.auto_approve"
	KeyLeadsNotifyOwner      = "leads.notify_owner"
	KeyReviewsRequireCaptcha = "reviews.require_captcha"
)

// Defaults apply to keys that have never been stored
var Defaults = map[string]Value{
	KeySiteTitle:             StringValue("BizFox"),
	KeySiteDescription:       StringValue("Find and review local businesses"),
	KeyModerationAutoApprove: BoolValue(false),
	KeyLeadsNotifyOwner:      BoolValue(true),
	KeyReviewsRequireCaptcha: BoolValue(false),
}

// Input is one requested change: a raw value plus its declared type
type Input struct {
	Value any  `json:"value"`
	Type  Type `json:"type"`
}

// Service reads and upserts platform settings
type Service struct {
	repo     repository.SettingRepository
	recorder *audit.Recorder
}

func NewService(repo repository.SettingRepository, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// SplitKey separates "category.key" into its parts
func SplitKey(key string) (category, name string, ok bool) {
	category, name, ok = strings.Cut(key, ".")
	if !ok || category == "" || name == "" {
		return "", "", false
	}
	return category, name, true
}

// Values returns every setting as a typed value, stored rows over defaults
func (s *Service) Values() (map[string]Value, error) {
	rows, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	values := make(map[string]Value, len(Defaults)+len(rows))
	for k, v := range Defaults {
		values[k] = v
	}
	for _, row := range rows {
		v, err := Decode(Type(row.Type), row.Value)
		if err != nil {
			log.Warnf("[Settings] stored value for %s is not a valid %s: %v", row.Key, row.Type, err)
			v = StringValue(row.Value)
		}
		values[row.Key] = v
	}
	return values, nil
}

// Organized groups all settings by category: {category: {key: value}}
func (s *Service) Organized() (map[string]map[string]any, error) {
	values, err := s.Values()
	if err != nil {
		return nil, err
	}

	out := make(map[string]map[string]any)
	for key, v := range values {
		category, name, ok := SplitKey(key)
		if !ok {
			category, name = "general", key
		}
		if out[category] == nil {
			out[category] = make(map[string]any)
		}
		out[category][name] = v.Native()
	}
	return out, nil
}

// Get returns the typed value of key, falling back to its default
func (s *Service) Get(key string) (Value, error) {
	row, err := s.repo.GetByKey(key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if def, ok := Defaults[key]; ok {
				return def, nil
			}
			return nil, apperror.NotFound("setting " + key)
		}
		return nil, err
	}
	return Decode(Type(row.Type), row.Value)
}

// Bool reads a boolean setting. Lookup or type errors yield the default.
func (s *Service) Bool(key string) bool {
	def, _ := Defaults[key].(BoolValue)
	v, err := s.Get(key)
	if err != nil {
		log.Warnf("[Settings] falling back to default for %s: %v", key, err)
		return bool(def)
	}
	b, ok := v.(BoolValue)
	if !ok {
		return bool(def)
	}
	return bool(b)
}

// Update validates all inputs, upserts them, and writes one audit entry
// listing the updated keys. Nothing is written when any input is invalid.
func (s *Service) Update(actor access.Principal, inputs map[string]Input) ([]string, error) {
	if len(inputs) == 0 {
		return nil, apperror.Validation("no settings supplied")
	}

	typed := make(map[string]Value, len(inputs))
	var fields []apperror.FieldError
	for key, in := range inputs {
		if _, _, ok := SplitKey(key); !ok {
			fields = append(fields, apperror.FieldError{Field: key, Message: "key must use the category.key format"})
			continue
		}
		if !in.Type.Valid() {
			fields = append(fields, apperror.FieldError{Field: key, Message: "type must be one of: string boolean number json"})
			continue
		}
		v, err := FromInput(in.Type, in.Value)
		if err != nil {
			fields = append(fields, apperror.FieldError{Field: key, Message: err.Error()})
			continue
		}
		typed[key] = v
	}
	if len(fields) > 0 {
		sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
		return nil, apperror.Validation("invalid settings", fields...)
	}

	keys := make([]string, 0, len(typed))
	for key := range typed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := typed[key]
		category, _, _ := SplitKey(key)
		row := &models.Setting{
			Key:         key,
			Value:       v.Encode(),
			Type:        string(v.Type()),
			Category:    category,
			UpdatedByID: actor.IDPtr(),
		}
		if err := s.repo.Upsert(row); err != nil {
			return nil, apperror.Internal(err)
		}
	}

	target := "batch"
	if len(keys) == 1 {
		target = keys[0]
	}
	if _, err := s.recorder.Record(actor, models.ActionSettingsUpdate, models.TargetSetting, target, map[string]any{
		"updatedKeys": keys,
	}); err != nil {
		return nil, apperror.Internal(err)
	}

	log.Infof("[Settings] %d setting(s) updated by user %d", len(keys), actor.UserID)
	return keys, nil
}
