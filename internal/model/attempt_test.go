package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseAnswerSet(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want AnswerSet
	}{
		{"valid map", `{"q1":"a","q2":"b"}`, AnswerSet{"q1": "a", "q2": "b"}},
		{"empty object", `{}`, AnswerSet{}},
		{"empty payload", ``, AnswerSet{}},
		{"json null", `null`, AnswerSet{}},
		{"truncated", `{"q1":"a`, AnswerSet{}},
		{"wrong shape", `["q1","a"]`, AnswerSet{}},
		{"non-string value", `{"q1":7}`, AnswerSet{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseAnswerSet(json.RawMessage(tc.raw)))
		})
	}
}

func TestAttemptExpiredBoundary(t *testing.T) {
	deadline := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	a := ExamAttempt{EndsAt: deadline}

	assert.False(t, a.Expired(deadline.Add(-time.Second)))
	// Exactly at the deadline the attempt is still live.
	assert.False(t, a.Expired(deadline))
	assert.True(t, a.Expired(deadline.Add(time.Nanosecond)))
}

func TestRemainingSecondsClampsAtZero(t *testing.T) {
	deadline := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	a := ExamAttempt{EndsAt: deadline}

	assert.Equal(t, int64(90), a.RemainingSeconds(deadline.Add(-90*time.Second)))
	assert.Equal(t, int64(0), a.RemainingSeconds(deadline))
	assert.Equal(t, int64(0), a.RemainingSeconds(deadline.Add(time.Hour)))
}

func TestTerminal(t *testing.T) {
	assert.False(t, (&ExamAttempt{Status: AttemptStatusActive}).Terminal())
	assert.True(t, (&ExamAttempt{Status: AttemptStatusSubmitted}).Terminal())
	assert.True(t, (&ExamAttempt{Status: AttemptStatusTerminated}).Terminal())
}

func TestResultPassed(t *testing.T) {
	assert.True(t, (&Result{Score: 40}).Passed())
	assert.True(t, (&Result{Score: 100}).Passed())
	assert.False(t, (&Result{Score: 39}).Passed())
	assert.False(t, (&Result{Score: 0}).Passed())
}
