package domain

// RuleType selects the reward/penalty policy of a contest.
type RuleType string

const (
	RuleDefault         RuleType = "DEFAULT"
	RuleBurningAll      RuleType = "BURNING_ALL"
	RuleBurningSelected RuleType = "BURNING_SELECTED"
)

// ParseRuleType maps a stored value to a RuleType.
func ParseRuleType(s string) (RuleType, error) {
	switch r := RuleType(s); r {
	case RuleDefault, RuleBurningAll, RuleBurningSelected:
		return r, nil
	}
	return "", undefined("rule type", s)
}

// SelectedProblemStatus is the lifecycle state of a purchased card.
type SelectedProblemStatus string

const (
	StatusActive   SelectedProblemStatus = "ACTIVE"
	StatusSolved   SelectedProblemStatus = "SOLVED"
	StatusFailed   SelectedProblemStatus = "FAILED"
	StatusRejected SelectedProblemStatus = "REJECTED"
)

func ParseSelectedProblemStatus(s string) (SelectedProblemStatus, error) {
	switch st := SelectedProblemStatus(s); st {
	case StatusActive, StatusSolved, StatusFailed, StatusRejected:
		return st, nil
	}
	return "", undefined("selected problem status", s)
}

// Terminal reports whether no further transitions are possible.
func (s SelectedProblemStatus) Terminal() bool {
	return s != StatusActive
}

// ProblemCardStatus is how a card is shown on the grid to one contestant.
type ProblemCardStatus string

const (
	CardOpen     ProblemCardStatus = "OPEN"
	CardClosed   ProblemCardStatus = "CLOSED"
	CardSolving  ProblemCardStatus = "SOLVING"
	CardSolved   ProblemCardStatus = "SOLVED"
	CardFailed   ProblemCardStatus = "FAILED"
	CardRejected ProblemCardStatus = "REJECTED"
)

// CardStatusOf maps the status of a purchase to the card status on the grid.
func CardStatusOf(s SelectedProblemStatus) (ProblemCardStatus, error) {
	switch s {
	case StatusActive:
		return CardSolving, nil
	case StatusSolved:
		return CardSolved, nil
	case StatusFailed:
		return CardFailed, nil
	case StatusRejected:
		return CardRejected, nil
	}
	return "", undefined("selected problem status", string(s))
}

// Verdict is the outcome recorded on a submission.
type Verdict string

const (
	VerdictAccepted Verdict = "ACCEPTED"
	VerdictWrong    Verdict = "WRONG"
	VerdictRejected Verdict = "REJECTED"
)

func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(s); v {
	case VerdictAccepted, VerdictWrong, VerdictRejected:
		return v, nil
	}
	return "", undefined("verdict", s)
}

// LogLevel marks the severity of a contestant log line.
type LogLevel string

const (
	LogInfo      LogLevel = "INFO"
	LogDebug     LogLevel = "DEBUG"
	LogAttention LogLevel = "ATTENTION"
	LogError     LogLevel = "ERROR"
)

func ParseLogLevel(s string) (LogLevel, error) {
	switch l := LogLevel(s); l {
	case LogInfo, LogDebug, LogAttention, LogError:
		return l, nil
	}
	return "", undefined("log level", s)
}
