package model

import "github.com/google/uuid"

// Question is a four-option multiple choice question. CorrectAnswer holds the
// exact option text; grading compares by string equality, never by position.
type Question struct {
	ID            uuid.UUID `json:"id"`
	ExamID        uuid.UUID `json:"exam_id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectAnswer string    `json:"correct_answer"`
}

// Options returns the four answer options in display order.
func (q *Question) Options() []string {
	return []string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// QuestionForStudent is a question stripped of its correct answer, safe to
// send to an examinee.
type QuestionForStudent struct {
	ID           uuid.UUID `json:"id"`
	QuestionText string    `json:"question_text"`
	Options      []string  `json:"options"`
}

// ForStudent converts a question to its examinee-facing view.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		Options:      q.Options(),
	}
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	QuestionText  string `json:"question_text" binding:"required,min=1,max=2000"`
	OptionA       string `json:"option_a" binding:"required,max=500"`
	OptionB       string `json:"option_b" binding:"required,max=500"`
	OptionC       string `json:"option_c" binding:"required,max=500"`
	OptionD       string `json:"option_d" binding:"required,max=500"`
	CorrectAnswer string `json:"correct_answer" binding:"required,max=500"`
}
