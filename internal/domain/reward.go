package domain

import "fmt"

// MaxAttempts is the number of wrong answers after which a DEFAULT card burns.
const MaxAttempts = 3

// MaxReward returns the points credited for a correct answer given the number of
// wrong answers submitted before it. Only RuleDefault is implemented.
func MaxReward(attemptsBefore, price int, rule RuleType) (int, error) {
	if attemptsBefore < 0 || price < 0 {
		return 0, fmt.Errorf("%w: attempts=%d price=%d", ErrInvalidArgument, attemptsBefore, price)
	}
	switch rule {
	case RuleDefault:
		switch attemptsBefore {
		case 0:
			return price * 2, nil
		case 1:
			return price * 3 / 2, nil
		case 2:
			return price, nil
		default:
			return 0, nil
		}
	case RuleBurningAll, RuleBurningSelected:
		return 0, fmt.Errorf("%w: reward rule %s", ErrNotImplemented, rule)
	}
	return 0, undefined("rule type", string(rule))
}

// RemainingAttempts is the number of answers a contestant may still send.
func RemainingAttempts(wrongBefore int) int {
	if left := MaxAttempts - wrongBefore; left > 0 {
		return left
	}
	return 0
}

func wrapInvalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}
