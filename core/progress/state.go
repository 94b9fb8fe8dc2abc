package progress

import "github.com/pkg/errors"

// State of a learner's quiz unlock for one course.
type State int

const (
	// Locked: nothing of the course is watched yet.
	Locked State = iota
	// InProgress: some videos watched, but the quiz is not available (below threshold or no quiz content).
	InProgress
	// ThresholdReached: the quiz is available and the unlock popup has not been shown in the active window.
	ThresholdReached
	// PopupShown: the quiz is available and the unlock popup was already shown.
	PopupShown
)

var stateNames = map[State]string{
	Locked:           "locked",
	InProgress:       "in_progress",
	ThresholdReached: "threshold_reached",
	PopupShown:       "popup_shown",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return errors.Errorf("unknown state %q", b)
}

// QuizAvailable reports whether the learner may take the quiz in this state.
func (s State) QuizAvailable() bool {
	return s == ThresholdReached || s == PopupShown
}

// Inputs is everything the unlock state depends on.
type Inputs struct {
	Progress    int
	Threshold   int
	HasQuiz     bool
	PopupActive bool // an unexpired unlock record exists
}

// Evaluate is the single transition function of the unlock state machine.
func Evaluate(in Inputs) State {
	if in.HasQuiz && in.Progress >= in.Threshold {
		if in.PopupActive {
			return PopupShown
		}
		return ThresholdReached
	}
	if in.Progress <= 0 {
		return Locked
	}
	return InProgress
}
