package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/settings"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shuffleQuestions(n int) []model.Question {
	qs := examQuestions(n)
	for i := range qs {
		qs[i].ID = fmt.Sprintf("q-%02d", i)
	}
	return qs
}

func TestShufflePlan_IsPermutation(t *testing.T) {
	qs := shuffleQuestions(12)
	cfg := settings.MustParse(model.ModeExam, `{}`).(*settings.ExamSettings)

	order, perms := NewShuffleService(7).Plan(qs, cfg)
	require.Len(t, order, 12)

	sorted := append([]string(nil), order...)
	sort.Strings(sorted)
	for i, id := range sorted {
		assert.Equal(t, qs[i].ID, id)
	}

	for _, id := range order {
		perm := append([]int(nil), perms[id]...)
		sort.Ints(perm)
		assert.Equal(t, []int{0, 1, 2, 3}, perm)
	}
}

func TestShufflePlan_Disabled(t *testing.T) {
	qs := shuffleQuestions(5)
	cfg := settings.MustParse(model.ModeExam, `{"shuffleQuestions":false,"shuffleChoices":false}`).(*settings.ExamSettings)

	order, perms := NewShuffleService(7).Plan(qs, cfg)
	assert.Equal(t, []string{"q-00", "q-01", "q-02", "q-03", "q-04"}, order)
	for _, id := range order {
		assert.Equal(t, []int{0, 1, 2, 3}, perms[id])
	}
}

func TestShufflePlan_NumQuestions(t *testing.T) {
	qs := shuffleQuestions(10)
	cfg := settings.MustParse(model.ModeExam, `{"numQuestions":4}`).(*settings.ExamSettings)

	order, perms := NewShuffleService(3).Plan(qs, cfg)
	assert.Len(t, order, 4)
	assert.Len(t, perms, 4)

	seen := make(map[string]bool)
	for _, id := range order {
		assert.False(t, seen[id])
		seen[id] = true
	}

	all := settings.MustParse(model.ModeExam, `{"numQuestions":20}`).(*settings.ExamSettings)
	order, _ = NewShuffleService(3).Plan(qs, all)
	assert.Len(t, order, 10)
}

func TestShufflePlan_SameSeedSameOrder(t *testing.T) {
	qs := shuffleQuestions(8)
	cfg := settings.MustParse(model.ModeExam, `{}`).(*settings.ExamSettings)

	a, pa := NewShuffleService(99).Plan(qs, cfg)
	b, pb := NewShuffleService(99).Plan(qs, cfg)
	assert.Equal(t, a, b)
	assert.Equal(t, pa, pb)
}
