package quiz

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
)

// newQuiz builds a quiz of n questions q0..qn-1 whose answers are q<i>a0..q<i>a3, a0 being correct.
func newQuiz(n int) Quiz {
	q := Quiz{ID: "quiz"}
	for i := 0; i < n; i++ {
		qn := Question{ID: fmt.Sprintf("q%d", i), Position: i}
		for j := 0; j < 4; j++ {
			qn.Answers = append(qn.Answers, Answer{ID: fmt.Sprintf("q%da%d", i, j), IsCorrect: j == 0, Position: j})
		}
		q.Questions = append(q.Questions, qn)
	}
	return q
}

func pick(question, answer string) AnswerInput {
	return AnswerInput{QuestionID: question, SelectedAnswerID: &answer}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		name    string
		quiz    Quiz
		answers []AnswerInput
		want    Result
	}{
		{
			name:    "3 of 4 right",
			quiz:    newQuiz(4),
			answers: []AnswerInput{pick("q0", "q0a0"), pick("q1", "q1a0"), pick("q2", "q2a0"), pick("q3", "q3a2")},
			want:    Result{Score: 3, Total: 4, Percentage: 75, Passed: true},
		},
		{
			name:    "exactly half passes",
			quiz:    newQuiz(4),
			answers: []AnswerInput{pick("q0", "q0a0"), pick("q1", "q1a0"), pick("q2", "q2a1"), pick("q3", "q3a1")},
			want:    Result{Score: 2, Total: 4, Percentage: 50, Passed: true},
		},
		{
			name:    "below half fails",
			quiz:    newQuiz(3),
			answers: []AnswerInput{pick("q0", "q0a0"), pick("q1", "q1a3")},
			want:    Result{Score: 1, Total: 3, Percentage: 33.33, Passed: false},
		},
		{
			name:    "rounded to 2 places",
			quiz:    newQuiz(3),
			answers: []AnswerInput{pick("q0", "q0a0"), pick("q1", "q1a0")},
			want:    Result{Score: 2, Total: 3, Percentage: 66.67, Passed: true},
		},
		{
			name:    "unanswered questions count as wrong",
			quiz:    newQuiz(4),
			answers: []AnswerInput{pick("q0", "q0a0"), {QuestionID: "q1"}},
			want:    Result{Score: 1, Total: 4, Percentage: 25, Passed: false},
		},
		{
			name: "no answers",
			quiz: newQuiz(2),
			want: Result{Score: 0, Total: 2, Percentage: 0, Passed: false},
		},
		{
			name: "quiz without questions",
			quiz: newQuiz(0),
			want: Result{Score: 0, Total: 0, Percentage: 0, Passed: false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Grade(tt.quiz, tt.answers)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGrade_InvalidAnswers(t *testing.T) {
	tests := []struct {
		name      string
		answers   []AnswerInput
		wantField string
	}{
		{
			name:      "question of another quiz",
			answers:   []AnswerInput{pick("q9", "q9a0")},
			wantField: "answers[0].question",
		},
		{
			name:      "answer of another question",
			answers:   []AnswerInput{pick("q0", "q0a0"), pick("q1", "q0a1")},
			wantField: "answers[1].selected_answer",
		},
		{
			name:      "unknown answer",
			answers:   []AnswerInput{pick("q0", "nope")},
			wantField: "answers[0].selected_answer",
		},
		{
			name:      "question answered twice",
			answers:   []AnswerInput{pick("q0", "q0a0"), pick("q1", "q1a0"), pick("q0", "q0a1")},
			wantField: "answers[2].question",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Grade(newQuiz(2), tt.answers)
			require.Error(t, err)

			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}
}

func TestQuiz_Redacted(t *testing.T) {
	q := newQuiz(2)
	r := q.Redacted()

	assert.True(t, r.IsRedacted())
	assert.False(t, q.IsRedacted())
	for _, qn := range r.Questions {
		require.Len(t, qn.Answers, 4)
		for _, a := range qn.Answers {
			assert.False(t, a.IsCorrect)
		}
	}
	assert.True(t, q.Questions[0].Answers[0].IsCorrect, "redacting must not touch the original")
}
