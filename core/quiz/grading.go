package quiz

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/trezcool/elimu/core"
)

var hundred = decimal.NewFromInt(100)

// Result is the outcome of grading an answer set.
type Result struct {
	Score      int
	Total      int
	Percentage float64
	Passed     bool
}

// Grade scores answers against q: one point per selected correct answer. Every referenced question must
// belong to q (at most once) and every selected answer to its question.
// Percentage is score/total*100 rounded to 2 places; passing needs half the questions right.
// A quiz without questions grades to 0% and fails.
func Grade(q Quiz, answers []AnswerInput) (Result, error) {
	questions := make(map[string]map[string]bool, len(q.Questions))
	for _, qn := range q.Questions {
		correct := make(map[string]bool, len(qn.Answers))
		for _, a := range qn.Answers {
			correct[a.ID] = a.IsCorrect
		}
		questions[qn.ID] = correct
	}

	res := Result{Total: len(q.Questions)}
	seen := make(map[string]bool, len(answers))
	for i, in := range answers {
		field := fmt.Sprintf("answers[%d]", i)
		correct, ok := questions[in.QuestionID]
		if !ok {
			return Result{}, core.NewFieldError(field+".question", "question does not belong to this quiz")
		}
		if seen[in.QuestionID] {
			return Result{}, core.NewFieldError(field+".question", "question answered more than once")
		}
		seen[in.QuestionID] = true

		if in.SelectedAnswerID == nil {
			continue
		}
		isCorrect, ok := correct[*in.SelectedAnswerID]
		if !ok {
			return Result{}, core.NewFieldError(field+".selected_answer", "selected answer does not belong to the question")
		}
		if isCorrect {
			res.Score++
		}
	}

	if res.Total > 0 {
		pct := decimal.NewFromInt(int64(res.Score)).
			Mul(hundred).
			DivRound(decimal.NewFromInt(int64(res.Total)), 2)
		res.Percentage = pct.InexactFloat64()
		res.Passed = res.Score*2 >= res.Total
	}
	return res, nil
}
