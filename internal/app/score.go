package app

import "fmt"

// AccuracyScore returns the percentage of correct answers. Zero answers
// scores 0 rather than dividing by zero.
func AccuracyScore(correct, incorrect int) float64 {
	total := correct + incorrect
	if total == 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}

// FormatScore renders the score the way the scoreboard displays it,
// e.g. "5/8 = 62.5%". With no answers recorded it renders "0".
func FormatScore(correct, incorrect int) string {
	total := correct + incorrect
	if total == 0 {
		return "0"
	}
	return fmt.Sprintf("%d/%d = %.3g%%", correct, total, AccuracyScore(correct, incorrect))
}
