package aggregate

import (
	"math"

	"github.com/roach88/lexstore/internal/record"
)

// CourseCompletion returns the completed percentage of a course:
// round(100*k/N) for k distinct completed lessons out of N lessons across
// all modules. A course without lessons is 0% complete. The result never
// exceeds 100.
func CourseCompletion(course record.Course, progress record.CourseProgress) int {
	total := course.TotalLessons()
	if total == 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(progress.Completed()) / float64(total)))
	return min(pct, 100)
}

// CourseReport is one row of a progress report.
type CourseReport struct {
	UserID       string `json:"userId,omitempty"`
	CourseID     string `json:"courseId"`
	Title        string `json:"title"`
	Found        bool   `json:"found"`
	TotalLessons int    `json:"totalLessons"`
	Completed    int    `json:"completed"`
	Percent      int    `json:"percent"`
}

// ProgressReport resolves each progress record to its course and computes
// completion, in progress order. Progress for a course that no longer
// exists reports 0%.
func ProgressReport(courses []record.Course, progress []record.CourseProgress) []CourseReport {
	byID := make(map[string]record.Course, len(courses))
	for _, c := range courses {
		if _, dup := byID[c.ID]; !dup {
			byID[c.ID] = c
		}
	}

	out := make([]CourseReport, 0, len(progress))
	for _, p := range progress {
		row := CourseReport{
			UserID:    p.UserID,
			CourseID:  p.CourseID,
			Completed: p.Completed(),
		}
		if c, ok := byID[p.CourseID]; ok {
			row.Found = true
			row.Title = c.Title
			row.TotalLessons = c.TotalLessons()
			row.Percent = CourseCompletion(c, p)
		}
		out = append(out, row)
	}
	return out
}
