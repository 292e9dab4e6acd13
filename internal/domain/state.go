package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Transition is the outcome of grading one answer of an active selected problem.
type Transition struct {
	Verdict Verdict
	Status  SelectedProblemStatus
	Reward  int
}

// NormalizeAnswer drops every whitespace rune and case-folds the rest.
func NormalizeAnswer(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return cases.Fold().String(stripped)
}

// AnswersMatch compares a contestant answer with the stored one after normalization.
func AnswersMatch(given, expected string) bool {
	return NormalizeAnswer(given) == NormalizeAnswer(expected)
}

// ValidateAnswer rejects answers that could never be stored on a submission.
func ValidateAnswer(answer string) error {
	n := utf8.RuneCountInString(answer)
	if n == 0 || n > MaxAnswerLen {
		return fmt.Errorf("%w: answer length must be between 1 and %d", ErrInvalidArgument, MaxAnswerLen)
	}
	return nil
}

// NextTransition grades an answer. wrongBefore counts WRONG submissions already
// recorded for the selected problem. Only ACTIVE problems accept answers.
func NextTransition(current SelectedProblemStatus, wrongBefore, price int, rule RuleType, correct bool) (Transition, error) {
	if _, err := ParseSelectedProblemStatus(string(current)); err != nil {
		return Transition{}, err
	}
	if current.Terminal() {
		return Transition{}, fmt.Errorf("%w: selected problem is %s", ErrPermissionDenied, current)
	}
	if rule != RuleDefault {
		if _, err := ParseRuleType(string(rule)); err != nil {
			return Transition{}, err
		}
		return Transition{}, fmt.Errorf("%w: attempt rules for %s", ErrNotImplemented, rule)
	}

	if correct {
		reward, err := MaxReward(wrongBefore, price, rule)
		if err != nil {
			return Transition{}, err
		}
		return Transition{Verdict: VerdictAccepted, Status: StatusSolved, Reward: reward}, nil
	}

	next := StatusActive
	if wrongBefore >= MaxAttempts-1 {
		next = StatusFailed
	}
	return Transition{Verdict: VerdictWrong, Status: next}, nil
}
