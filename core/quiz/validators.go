package quiz

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

const answersPerQuestion = 4

var (
	fourAnswersTag  = "fouranswers"
	fourAnswersText = "each question must have exactly 4 answers"

	oneCorrectTag  = "onecorrect"
	oneCorrectText = "there must be exactly one correct answer per question"
)

// InitValidators registers the quiz validators on validate. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, fourAnswersTag, fourAnswersText)
	core.RegisterCustomTranslation(validate, translator, oneCorrectTag, oneCorrectText)
}

// questionStructValidation checks that a NewQuestion has 4 answers, exactly one of them correct.
func questionStructValidation(sl validator.StructLevel) {
	q := sl.Current().Interface().(NewQuestion)
	if len(q.Answers) != answersPerQuestion {
		sl.ReportError(q.Answers, "answers", "Answers", fourAnswersTag, "")
		return
	}
	var correct int
	for _, a := range q.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		sl.ReportError(q.Answers, "answers", "Answers", oneCorrectTag, "")
	}
}
