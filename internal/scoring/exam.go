package scoring

import "sort"

type ExamQuestion struct {
	ID      string
	Correct []int
}

type ExamAnswer struct {
	QuestionID string
	Selected   []int
}

type ExamResult struct {
	CorrectAnswers int
	TotalQuestions int
	Score          float64
	Passed         bool
	// Correctness 仅包含已作答的题目
	Correctness map[string]bool
}

// Exam 按题目集合比对，未作答视为错误。questions 为本次作答抽取的题目
func (en *Engine) Exam(questions []ExamQuestion, answers []ExamAnswer, passThreshold float64) ExamResult {
	res := ExamResult{
		TotalQuestions: len(questions),
		Correctness:    make(map[string]bool, len(answers)),
	}

	byID := make(map[string]ExamAnswer, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a
	}

	for _, q := range questions {
		a, ok := byID[q.ID]
		if !ok {
			continue
		}
		correct := SameChoices(a.Selected, q.Correct)
		res.Correctness[q.ID] = correct
		if correct {
			res.CorrectAnswers++
		}
	}

	if res.TotalQuestions > 0 {
		raw := float64(res.CorrectAnswers) / float64(res.TotalQuestions) * 100
		res.Score = round(raw, 2)
		res.Passed = raw >= passThreshold
	}
	return res
}

// SameChoices 排序去重后逐项比较，与选择顺序无关
func SameChoices(selected, correct []int) bool {
	a := normalize(selected)
	b := normalize(correct)
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func normalize(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
