package ratings

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/BizFox/app/models"
)

func reviews(ratings ...int) []models.Review {
	out := make([]models.Review, len(ratings))
	for i, r := range ratings {
		out[i] = models.Review{ID: uint(i + 1), Rating: r}
	}
	return out
}

func TestComputeSummary_Empty(t *testing.T) {
	s := ComputeSummary(nil)
	assert.Equal(t, 0.0, s.Average)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, s.Distribution)
}

func TestComputeSummary_RoundsToOneDecimal(t *testing.T) {
	s := ComputeSummary(reviews(5, 4, 4))
	assert.Equal(t, 4.3, s.Average)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 2, s.Distribution[4])
	assert.Equal(t, 1, s.Distribution[5])
}

func TestComputeSummary_ExcludesHidden(t *testing.T) {
	rs := reviews(5, 1, 1)
	rs[1].IsHidden = true
	rs[2].IsHidden = true

	s := ComputeSummary(rs)
	assert.Equal(t, 5.0, s.Average)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 0, s.Distribution[1])
}

func TestComputeSummary_DistributionMatchesCount(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		rs := make([]models.Review, n)
		for i := range rs {
			rs[i] = models.Review{Rating: rng.Intn(5) + 1, IsHidden: rng.Intn(4) == 0}
		}
		s := ComputeSummary(rs)

		assert.Len(t, s.Distribution, 5)
		sum := 0
		for bucket := 1; bucket <= 5; bucket++ {
			v, ok := s.Distribution[bucket]
			assert.True(t, ok, "bucket %d missing", bucket)
			sum += v
		}
		assert.Equal(t, s.Count, sum)
	}
}

func TestComputeSummary_StableUnderReordering(t *testing.T) {
	rs := reviews(1, 2, 2, 3, 5, 5, 5, 4)
	want := ComputeSummary(rs)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Review(nil), rs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, ComputeSummary(shuffled))
	}
}
