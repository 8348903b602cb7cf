package config

import "fmt"

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// AttemptStartLockKey returns the mutex key serializing start/resume for one
// (student, exam) pair.
func (r *CacheKeyStruct) AttemptStartLockKey(studentID int, examID string) string {
	return fmt.Sprintf("student:%d:exam:%s:start_lock", studentID, examID)
}

// ExamQuestionsKey returns the cache key for an exam's full question set.
func (r *CacheKeyStruct) ExamQuestionsKey(examID string) string {
	return fmt.Sprintf("exam:%s:questions", examID)
}

var CacheKey = NewCacheKeyStruct()
