// Package models defines the data passed between the pipeline and its front ends.
package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxQuestionLength is the longest accepted question, in characters.
const MaxQuestionLength = 4000

var (
	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("question cannot be empty")
	// ErrQuestionTooLong is returned for questions over MaxQuestionLength.
	ErrQuestionTooLong = errors.New("question is too long")
)

// ValidateQuestion checks that q, ignoring surrounding whitespace, is non-empty
// and within MaxQuestionLength. The question itself is used verbatim downstream.
func ValidateQuestion(q string) error {
	trimmed := strings.TrimSpace(q)
	if trimmed == "" {
		return ErrEmptyQuestion
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxQuestionLength {
		return fmt.Errorf("%w: %d characters (max %d)", ErrQuestionTooLong, n, MaxQuestionLength)
	}
	return nil
}

// IsInvalidQuestion reports whether err came from question validation.
func IsInvalidQuestion(err error) bool {
	return errors.Is(err, ErrEmptyQuestion) || errors.Is(err, ErrQuestionTooLong)
}
