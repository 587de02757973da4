package statistics

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BizFox/app/models"
	"github.com/ManuelReschke/BizFox/app/repository/repotest"
)

var errMiss = errors.New("miss")

type memCache struct {
	data map[string][]byte
	ttl  time.Duration
}

func (m *memCache) GetJSON(key string, v interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return errMiss
	}
	return json.Unmarshal(raw, v)
}

func (m *memCache) SetJSON(key string, v interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = raw
	m.ttl = expiration
	return nil
}

func seed(t *testing.T, store *repotest.Store) {
	t.Helper()
	repos := store.Repositories()
	owner := &models.User{Name: "Owner", Email: "owner@example.com", Role: models.RoleBusinessOwner, Status: models.STATUS_ACTIVE}
	require.NoError(t, repos.User.Create(owner))
	require.NoError(t, repos.Category.Create(&models.Category{Name: "Food", Slug: "food"}))
	require.NoError(t, repos.Business.Create(&models.Business{Name: "Open", Slug: "open", OwnerID: owner.ID, Status: models.BusinessStatusActive}))
	require.NoError(t, repos.Business.Create(&models.Business{Name: "Waiting", Slug: "waiting", OwnerID: owner.ID}))
}

func TestPublic_CachesResult(t *testing.T) {
	store := repotest.NewStore()
	seed(t, store)
	c := &memCache{data: map[string][]byte{}}
	svc := NewService(store.Repositories(), c)

	stats, err := svc.Public()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ActiveBusinesses)
	assert.Equal(t, int64(1), stats.Categories)
	assert.Equal(t, CacheExpiration, c.ttl)

	// later changes are not visible until the cache expires
	owner, err := store.Repositories().User.GetByEmail("owner@example.com")
	require.NoError(t, err)
	require.NoError(t, store.Repositories().Business.Create(&models.Business{Name: "Another", Slug: "another", OwnerID: owner.ID, Status: models.BusinessStatusActive}))

	stats, err = svc.Public()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ActiveBusinesses)

	require.NoError(t, svc.RefreshPublic())
	stats, err = svc.Public()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ActiveBusinesses)
}

func TestAdmin_Uncached(t *testing.T) {
	store := repotest.NewStore()
	seed(t, store)
	svc := NewService(store.Repositories(), nil)

	stats, err := svc.Admin()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.BusinessesByStatus[models.BusinessStatusActive])
	assert.Equal(t, int64(1), stats.BusinessesByStatus[models.BusinessStatusPending])
	assert.Equal(t, int64(1), stats.Users)
	assert.Equal(t, int64(1), stats.UsersByRole[models.RoleBusinessOwner])
}
