package service

import (
	"assessment_engine_backend/internal/model"
	"assessment_engine_backend/internal/settings"
	"math/rand"
	"sync"
	"time"
)

// ShuffleService 为考试生成题目顺序与选项排列。随机源按进程播种，结果随作答持久化
type ShuffleService struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewShuffleService seed 为 0 时使用当前时间
func NewShuffleService(seed int64) *ShuffleService {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &ShuffleService{rng: rand.New(rand.NewSource(seed))}
}

// Plan 返回抽取的题目 ID 顺序，以及每题的选项排列 perm，perm[显示位置] = 原始下标
func (s *ShuffleService) Plan(questions []model.Question, cfg *settings.ExamSettings) ([]string, map[string][]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := make([]string, len(questions))
	byID := make(map[string]model.Question, len(questions))
	for i, q := range questions {
		order[i] = q.ID
		byID[q.ID] = q
	}

	if cfg.QuestionShuffle() {
		s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	if cfg.NumQuestions > 0 && cfg.NumQuestions < len(order) {
		order = order[:cfg.NumQuestions]
	}

	choices := make(map[string][]int, len(order))
	for _, id := range order {
		perm := identity(len(byID[id].Choices))
		if cfg.ChoiceShuffle() {
			s.rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		}
		choices[id] = perm
	}
	return order, choices
}

func identity(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}
