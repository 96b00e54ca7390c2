package learning

import "github.com/somaedu/soma-backend/core/chapter"

// optionLetters maps a question's answer index to the letter a client
// submits. Comparison is string-exact and case-sensitive.
var optionLetters = [...]string{"A", "B", "C", "D"}

// Score is the outcome of CalculateScores.
type Score struct {
	Practice int
	Test     int
	Total    int
	Stars    int
}

// CalculateScores grades submitted answers against the question sets.
// Pure and deterministic: identical input always yields identical output.
func CalculateScores(practiceAnswers, testAnswers []string, practice, test []chapter.Question) Score {
	s := Score{
		Practice: countCorrect(practiceAnswers, practice),
		Test:     countCorrect(testAnswers, test),
	}
	s.Total = s.Practice + s.Test
	s.Stars = starRating(s.Total, len(practice)+len(test))
	return s
}

func countCorrect(answers []string, questions []chapter.Question) int {
	var correct int
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		if q.Answer >= 0 && q.Answer < len(optionLetters) && answers[i] == optionLetters[q.Answer] {
			correct++
		}
	}
	return correct
}

// starRating is a 5-tier step function of the score percentage, with
// inclusive boundaries at 90/80/70/60%.
func starRating(total, outOf int) int {
	if outOf == 0 {
		return 1
	}
	pct := float64(total) / float64(outOf)
	switch {
	case pct >= 0.9:
		return 5
	case pct >= 0.8:
		return 4
	case pct >= 0.7:
		return 3
	case pct >= 0.6:
		return 2
	default:
		return 1
	}
}
