package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veduka/examhall-backend/internal/model"
)

func TestScorePercent(t *testing.T) {
	cases := []struct {
		name    string
		correct int
		total   int
		want    int
	}{
		{"all correct", 10, 10, 100},
		{"none correct", 0, 10, 0},
		{"half", 5, 10, 50},
		{"one third rounds down", 1, 3, 33},
		{"two thirds rounds up", 2, 3, 67},
		{"one of seven", 1, 7, 14},
		{"half rounds up", 1, 2, 50},
		{"empty exam scores zero", 0, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ScorePercent(tc.correct, tc.total))
		})
	}
}

func TestCountCorrectMatchesByExactText(t *testing.T) {
	q1 := model.Question{ID: uuid.New(), CorrectAnswer: "Paris"}
	q2 := model.Question{ID: uuid.New(), CorrectAnswer: "4"}
	q3 := model.Question{ID: uuid.New(), CorrectAnswer: "Blue"}
	questions := []model.Question{q1, q2, q3}

	answers := model.AnswerSet{
		q1.ID.String(): "Paris",
		q2.ID.String(): "5",       // wrong
		q3.ID.String(): " Blue",   // leading space is not a match
		uuid.NewString(): "Paris", // answer for an unknown question is ignored
	}

	assert.Equal(t, 1, CountCorrect(answers, questions))
}

func TestCountCorrectEmptyInputs(t *testing.T) {
	q := model.Question{ID: uuid.New(), CorrectAnswer: "yes"}

	assert.Equal(t, 0, CountCorrect(model.AnswerSet{}, []model.Question{q}))
	assert.Equal(t, 0, CountCorrect(nil, []model.Question{q}))
	assert.Equal(t, 0, CountCorrect(model.AnswerSet{q.ID.String(): "yes"}, nil))
}

func TestBuildReviewVerdicts(t *testing.T) {
	q1 := model.Question{ID: uuid.New(), QuestionText: "Capital of France?", OptionA: "Paris", OptionB: "Lyon", OptionC: "Nice", OptionD: "Lille", CorrectAnswer: "Paris"}
	q2 := model.Question{ID: uuid.New(), QuestionText: "2 + 2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6", CorrectAnswer: "4"}
	q3 := model.Question{ID: uuid.New(), QuestionText: "Sky color?", OptionA: "Blue", OptionB: "Red", OptionC: "Green", OptionD: "Black", CorrectAnswer: "Blue"}

	answers := model.AnswerSet{
		q1.ID.String(): "Paris",
		q2.ID.String(): "5",
	}

	review := BuildReview(answers, []model.Question{q1, q2, q3})
	require.Len(t, review, 3)

	assert.Equal(t, model.VerdictCorrect, review[0].Verdict)
	require.NotNil(t, review[0].SelectedAnswer)
	assert.Equal(t, "Paris", *review[0].SelectedAnswer)

	assert.Equal(t, model.VerdictWrong, review[1].Verdict)
	require.NotNil(t, review[1].SelectedAnswer)
	assert.Equal(t, "5", *review[1].SelectedAnswer)
	assert.Equal(t, "4", review[1].CorrectAnswer)

	assert.Equal(t, model.VerdictUnanswered, review[2].Verdict)
	assert.Nil(t, review[2].SelectedAnswer)

	// Order follows the questions slice and each item carries all options.
	assert.Equal(t, q1.ID, review[0].QuestionID)
	assert.Equal(t, []string{"Paris", "Lyon", "Nice", "Lille"}, review[0].Options)
}

func TestBuildReviewEmptyQuestionSet(t *testing.T) {
	review := BuildReview(model.AnswerSet{"x": "y"}, nil)
	assert.Empty(t, review)
}
