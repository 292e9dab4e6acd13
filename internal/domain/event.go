package domain

import "encoding/json"

// EventKind enumerates the notifications services emit after a commit.
type EventKind int

const (
	EventBalanceChanged EventKind = iota + 1
	EventProblemBought
	EventSubmissionJudged
	EventContestantJoined
)

var eventKindNames = map[EventKind]string{
	EventBalanceChanged:   "balance_changed",
	EventProblemBought:    "problem_bought",
	EventSubmissionJudged: "submission_judged",
	EventContestantJoined: "contestant_joined",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

func (k EventKind) MarshalJSON() ([]byte, error) {
	name, ok := eventKindNames[k]
	if !ok {
		return nil, undefined("event kind", "")
	}
	return json.Marshal(name)
}

func (k *EventKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, n := range eventKindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return undefined("event kind", name)
}

// Event tells subscribers that a contest scoreboard may have changed.
type Event struct {
	Kind         EventKind `json:"kind"`
	ContestID    int64     `json:"contestId"`
	ContestantID int64     `json:"contestantId"`
}
