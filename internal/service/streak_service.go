package service

import "github.com/eduops/class-review-api/internal/models"

// streakFlagThreshold is the number of consecutive matching weeks before a
// class qualifies for an excellence or warning flag. A single good or bad
// week is not yet a trend.
const streakFlagThreshold = 2

var gradeOrdinals = map[string]int{"C": 1, "B": 2, "A": 3}

// StreakService detects trailing grade streaks and single-step improvements
// over a class's chronological weekly-grade history.
type StreakService struct{}

// NewStreakService constructs the service.
func NewStreakService() *StreakService {
	return &StreakService{}
}

// Detect computes trailing streaks for the grade sequence, which must be in
// ascending chronological order. Fewer than two entries yields zero streaks
// and no transition.
func (s *StreakService) Detect(grades []string) models.GradeStreak {
	streak := models.GradeStreak{
		ConsecutiveA: trailingCount(grades, "A"),
		ConsecutiveC: trailingCount(grades, "C"),
	}
	if len(grades) < 2 {
		return streak
	}
	prev := grades[len(grades)-2]
	latest := grades[len(grades)-1]
	if gradeOrdinals[latest] > gradeOrdinals[prev] {
		streak.LastTransition = &models.GradeTransition{From: prev, To: latest}
	}
	return streak
}

// IsExcellent reports whether the streak qualifies for the excellence flag.
func (s *StreakService) IsExcellent(streak models.GradeStreak) bool {
	return streak.ConsecutiveA >= streakFlagThreshold
}

// IsWarning reports whether the streak qualifies for the warning flag.
func (s *StreakService) IsWarning(streak models.GradeStreak) bool {
	return streak.ConsecutiveC >= streakFlagThreshold
}

func trailingCount(grades []string, grade string) int {
	count := 0
	for i := len(grades) - 1; i >= 0; i-- {
		if grades[i] != grade {
			break
		}
		count++
	}
	return count
}
