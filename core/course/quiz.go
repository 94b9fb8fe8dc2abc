package course

// Thresholds are the progress percentages at which a course quiz unlocks.
type Thresholds struct {
	Default    int
	Sequential int
}

// DefaultThresholds: sequential courses must be fully watched, others 80%.
var DefaultThresholds = Thresholds{Default: 80, Sequential: 100}

func (t Thresholds) For(isSequential bool) int {
	if isSequential {
		return t.Sequential
	}
	return t.Default
}

// ShouldShowQuiz reports whether the quiz is available at this progress.
func (t Thresholds) ShouldShowQuiz(progress int, isSequential, hasQuizContent bool) bool {
	return hasQuizContent && progress >= t.For(isSequential)
}

func QuizThreshold(isSequential bool) int {
	return DefaultThresholds.For(isSequential)
}

func ShouldShowQuiz(progress int, isSequential, hasQuizContent bool) bool {
	return DefaultThresholds.ShouldShowQuiz(progress, isSequential, hasQuizContent)
}
