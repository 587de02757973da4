package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository/repotest"
	"github.com/ManuelReschke/BizFox/internal/pkg/access"
	"github.com/ManuelReschke/BizFox/internal/pkg/apperror"
	"github.com/ManuelReschke/BizFox/internal/pkg/audit"
)

func newService() (*Service, *repotest.Store) {
	store := repotest.NewStore()
	repos := store.Repositories()
	return NewService(repos.Setting, audit.NewRecorder(repos.AuditLog)), store
}

var admin = access.Principal{UserID: 1, Role: models.RoleAdmin, Authenticated: true}

func TestOrganized_MergesDefaults(t *testing.T) {
	svc, _ := newService()

	out, err := svc.Organized()
	require.NoError(t, err)
	assert.Equal(t, "BizFox", out["site"]["title"])
	assert.Equal(t, true, out["leads"]["notify_owner"])
	assert.Equal(t, false, out["moderation"]["auto_approve"])
}

func TestUpdate_UpsertsAndAuditsOnce(t *testing.T) {
	svc, store := newService()

	keys, err := svc.Update(admin, map[string]Input{
		"site.title":          {Value: "Local Finder", Type: TypeString},
		"leads.notify_owner":  {Value: false, Type: TypeBoolean},
		"search.page_size":    {Value: 25.0, Type: TypeNumber},
		"site.social_handles": {Value: map[string]any{"x": "@bizfox"}, Type: TypeJSON},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"leads.notify_owner", "search.page_size", "site.social_handles", "site.title"}, keys)

	entries := store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionSettingsUpdate, entries[0].Action)
	assert.Equal(t, keys, entries[0].Details["updatedKeys"])
	require.NotNil(t, entries[0].AdminID)
	assert.Equal(t, uint(1), *entries[0].AdminID)

	assert.False(t, svc.Bool(KeyLeadsNotifyOwner))

	out, err := svc.Organized()
	require.NoError(t, err)
	assert.Equal(t, "Local Finder", out["site"]["title"])
	assert.Equal(t, 25.0, out["search"]["page_size"])
}

func TestUpdate_RejectsInvalidWithoutWriting(t *testing.T) {
	svc, store := newService()

	_, err := svc.Update(admin, map[string]Input{
		"site.title":    {Value: "ok", Type: TypeString},
		"nodot":         {Value: "x", Type: TypeString},
		"leads.enabled": {Value: "perhaps", Type: TypeBoolean},
	})
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Len(t, appErr.Fields, 2)

	assert.Empty(t, store.AuditEntries())
	v, err := svc.Get(KeySiteTitle)
	require.NoError(t, err)
	assert.Equal(t, StringValue("BizFox"), v)
}

func TestBool_FallsBackToDefaultOnError(t *testing.T) {
	svc, store := newService()
	store.SettingErr = errors.New("db down")

	assert.True(t, svc.Bool(KeyLeadsNotifyOwner))
	assert.False(t, svc.Bool(KeyReviewsRequireCaptcha))
}

func TestGet_UnknownKey(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Get("nope.missing")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotFound))
}
