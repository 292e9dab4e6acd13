package domain

import "time"

const (
	MaxSlots       = 5
	MaxPrice       = 10000
	MaxStartPoints = 10000
	MaxAnswerLen   = 32
	MaxNameLen     = 128
)

// Contest is a timed event with a grid of purchasable cards.
type Contest struct {
	ID                  int64
	OrganizerID         int64 // user id of the contest manager
	Name                string
	StartedAt           time.Time
	ClosedAt            time.Time
	StartPoints         int
	SlotsForProblems    int
	RuleType            RuleType
	AllowNegativePoints bool
	CreatedAt           time.Time
}

// IsOpen reports whether now falls into [StartedAt, ClosedAt).
func (c Contest) IsOpen(now time.Time) bool {
	return !now.Before(c.StartedAt) && now.Before(c.ClosedAt)
}

// Validate checks the invariants an organizer must respect when saving a contest.
func (c Contest) Validate() error {
	switch {
	case c.ClosedAt.Before(c.StartedAt):
		return wrapInvalid("closed_at before started_at")
	case c.StartPoints < 0 || c.StartPoints > MaxStartPoints:
		return wrapInvalid("start_points out of range")
	case c.SlotsForProblems < 1 || c.SlotsForProblems > MaxSlots:
		return wrapInvalid("number_of_slots_for_problems out of range")
	}
	if _, err := ParseRuleType(string(c.RuleType)); err != nil {
		return err
	}
	return nil
}

// ValidateContestantName checks a display name given at registration.
func ValidateContestantName(name string) error {
	switch n := len([]rune(name)); {
	case n == 0:
		return wrapInvalid("contestant name is empty")
	case n > MaxNameLen:
		return wrapInvalid("contestant name is too long")
	}
	return nil
}

// QuizField is the card grid of exactly one contest.
type QuizField struct {
	ID        int64
	ContestID int64
	Rows      int
	Columns   int
}

// ProblemCard is a purchasable slot of a quiz field.
type ProblemCard struct {
	ID            int64
	QuizFieldID   int64
	Row           int
	Column        int
	CategoryName  string
	CategoryPrice int
	ProblemID     *int64
}

// Problem holds the statement and the expected answer of a card.
type Problem struct {
	ID        int64
	Statement string
	Answer    string
}

// Contestant is a user's participation in one contest.
type Contestant struct {
	ID        int64
	UserID    int64
	ContestID int64
	Name      string
	Points    int
	CreatedAt time.Time
}

// SelectedProblem is the purchase record of a card by a contestant.
type SelectedProblem struct {
	ID            int64
	ProblemCardID int64
	ContestantID  int64
	Status        SelectedProblemStatus
	CreatedAt     time.Time
}

// Submission is one answer attempt. Rows are never updated.
type Submission struct {
	ID                int64
	SelectedProblemID int64
	Answer            string
	Verdict           Verdict
	CreatedAt         time.Time
}

// ContestantLog is a human readable line in the contestant's activity feed.
type ContestantLog struct {
	ID           int64
	ContestantID int64
	Level        LogLevel
	Content      string
	CreatedAt    time.Time
}

// SelectedProblemView is what a contestant sees for one of their active purchases.
type SelectedProblemView struct {
	SelectedProblemID int64     `json:"selectedProblemId"`
	ProblemCardID     int64     `json:"problemCardId"`
	ProblemStatement  string    `json:"problemStatement"`
	CategoryName      string    `json:"categoryName"`
	CategoryPrice     int       `json:"categoryPrice"`
	CreatedAt         time.Time `json:"createdAt"`
	AttemptsRemaining int       `json:"attemptsRemaining"`
	PossibleReward    int       `json:"possibleReward"`
}

// SelectedProblemList wraps the views with the contest rules they were computed under.
type SelectedProblemList struct {
	Items       []SelectedProblemView `json:"items"`
	RuleType    RuleType              `json:"ruleType"`
	MaxAttempts int                   `json:"maxAttempts,omitempty"`
}

// ContestantInfo summarizes a contestant's standing inside their contest.
type ContestantInfo struct {
	ContestantID    int64     `json:"contestantId"`
	Name            string    `json:"name"`
	Points          int       `json:"points"`
	ProblemsCurrent int       `json:"problemsCurrent"`
	ProblemsMax     int       `json:"problemsMax"`
	ContestID       int64     `json:"contestId"`
	ContestName     string    `json:"contestName"`
	StartedAt       time.Time `json:"startedAt"`
	ClosedAt        time.Time `json:"closedAt"`
	IsOpen          bool      `json:"isOpen"`
}

// LogEntry is the wire form of a ContestantLog.
type LogEntry struct {
	ID        int64     `json:"id"`
	Level     LogLevel  `json:"level"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// LogPage is a paginated slice of contestant logs, newest first.
type LogPage struct {
	Total   int        `json:"total"`
	Offset  int        `json:"offset"`
	Limit   int        `json:"limit"`
	Entries []LogEntry `json:"entries"`
}

// StandingsEntry is one contestant row of a scoreboard.
type StandingsEntry struct {
	ContestantID int64  `json:"contestantId"`
	Name         string `json:"name"`
	Points       int    `json:"points"`
}

// Standings captures the ordered scoreboard of a contest.
type Standings struct {
	ContestID int64            `json:"contestId"`
	Entries   []StandingsEntry `json:"entries"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// CardView is one cell of the grid as a given contestant sees it.
type CardView struct {
	ProblemCardID int64             `json:"problemCardId"`
	Row           int               `json:"row"`
	Column        int               `json:"column"`
	CategoryName  string            `json:"categoryName"`
	CategoryPrice int               `json:"categoryPrice"`
	Status        ProblemCardStatus `json:"status"`
	IsOpenForBuy  bool              `json:"isOpenForBuy"`
}

// QuizFieldView is the contestant's picture of the whole grid.
type QuizFieldView struct {
	QuizFieldID int64      `json:"quizFieldId"`
	ContestID   int64      `json:"contestId"`
	Rows        int        `json:"rows"`
	Columns     int        `json:"columns"`
	Cards       []CardView `json:"cards"`
}

// ContestSubmission is one row of a contest's submission history.
type ContestSubmission struct {
	SubmissionID   int64     `json:"submissionId"`
	ContestantID   int64     `json:"contestantId"`
	ContestantName string    `json:"contestantName"`
	ProblemCardID  int64     `json:"problemCardId"`
	CategoryName   string    `json:"categoryName"`
	CategoryPrice  int       `json:"categoryPrice"`
	Verdict        Verdict   `json:"verdict"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SubmissionFeed lists the latest submissions of a contest, newest first.
type SubmissionFeed struct {
	ContestID   int64               `json:"contestId"`
	Name        string              `json:"name"`
	StartedAt   time.Time           `json:"startedAt"`
	ClosedAt    time.Time           `json:"closedAt"`
	Limit       int                 `json:"limit"`
	Submissions []ContestSubmission `json:"submissions"`
}
