package service

import (
	"math"

	"github.com/veduka/examhall-backend/internal/model"
)

// CountCorrect tallies how many questions the stored answers got right.
// Answers are keyed by question id as text and compared to the correct
// answer by exact string equality. Unanswered questions simply don't count.
func CountCorrect(answers model.AnswerSet, questions []model.Question) int {
	correct := 0
	for _, q := range questions {
		if chosen, ok := answers[q.ID.String()]; ok && chosen == q.CorrectAnswer {
			correct++
		}
	}
	return correct
}

// ScorePercent normalizes a correct count to a 0-100 integer score,
// rounded. Zero questions scores zero.
func ScorePercent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}

// BuildReview re-derives per-question feedback for a graded attempt. This is
// pure reconstruction from the stored answers; it never consults the stored
// score, so a review can never drift from what was actually answered.
func BuildReview(answers model.AnswerSet, questions []model.Question) []model.QuestionReview {
	review := make([]model.QuestionReview, 0, len(questions))
	for _, q := range questions {
		item := model.QuestionReview{
			QuestionID:    q.ID,
			QuestionText:  q.QuestionText,
			Options:       q.Options(),
			CorrectAnswer: q.CorrectAnswer,
		}

		if chosen, ok := answers[q.ID.String()]; ok {
			item.SelectedAnswer = &chosen
			if chosen == q.CorrectAnswer {
				item.Verdict = model.VerdictCorrect
			} else {
				item.Verdict = model.VerdictWrong
			}
		} else {
			item.Verdict = model.VerdictUnanswered
		}

		review = append(review, item)
	}
	return review
}
