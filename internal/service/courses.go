package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/lexstore/internal/aggregate"
	"github.com/roach88/lexstore/internal/record"
	"github.com/roach88/lexstore/internal/relation"
	"github.com/roach88/lexstore/internal/store"
)

// LessonResult is the progress after CompleteLesson.
type LessonResult struct {
	Progress record.CourseProgress `json:"progress"`
	// Percent is the course completion, or -1 when the course is unknown.
	Percent int `json:"percent"`
}

// CompleteLesson marks a lesson done for a user (userID may be empty for
// single-user installs). Completing a lesson twice changes nothing.
//
// When the course is known the lesson must belong to it; unknown courses
// are accepted so progress can be recorded before course content is stored.
func (s *Service) CompleteLesson(ctx context.Context, userID, courseID, lessonID string) (LessonResult, error) {
	if strings.TrimSpace(courseID) == "" {
		return LessonResult{}, fmt.Errorf("complete lesson: %w", &ValidationError{Field: "courseId", Reason: "required"})
	}
	if strings.TrimSpace(lessonID) == "" {
		return LessonResult{}, fmt.Errorf("complete lesson: %w", &ValidationError{Field: "lessonId", Reason: "required"})
	}

	courses, _, err := store.GetCollection[record.Course](ctx, s.store, record.CollectionCourses)
	if err != nil {
		return LessonResult{}, fmt.Errorf("complete lesson: %w", err)
	}
	course, known := relation.Find(courses, courseID)
	if known && !hasLesson(course, lessonID) {
		return LessonResult{}, fmt.Errorf("complete lesson: %w",
			&ValidationError{Field: "lessonId", Reason: fmt.Sprintf("lesson %q is not part of course %q", lessonID, courseID)})
	}

	key := record.ProgressKey(userID, courseID)
	var progress record.CourseProgress
	_, err = store.Update(ctx, s.store, record.CollectionCourseProgress, func(rows []record.CourseProgress) ([]record.CourseProgress, error) {
		for i, p := range rows {
			if p.Key() != key {
				continue
			}
			progress = p
			if p.HasLesson(lessonID) {
				return nil, store.ErrNoChange
			}
			progress = p.WithLesson(lessonID)
			rows[i] = progress
			return rows, nil
		}
		progress = record.CourseProgress{CourseID: courseID, UserID: userID}.WithLesson(lessonID)
		return append([]record.CourseProgress{progress}, rows...), nil
	})
	if err != nil {
		return LessonResult{}, fmt.Errorf("complete lesson: %w", err)
	}

	res := LessonResult{Progress: progress, Percent: -1}
	if known {
		res.Percent = aggregate.CourseCompletion(course, progress)
	}
	slog.Debug("lesson completed", "course_id", courseID, "lesson_id", lessonID, "percent", res.Percent)
	return res, nil
}

func hasLesson(c record.Course, lessonID string) bool {
	for _, m := range c.Modules {
		for _, l := range m.Lessons {
			if l.ID == lessonID {
				return true
			}
		}
	}
	return false
}

// Progress returns the completion report for one user's progress records
// (all records when userID is empty).
func (s *Service) Progress(ctx context.Context, userID string) ([]aggregate.CourseReport, error) {
	courses, _, err := store.GetCollection[record.Course](ctx, s.store, record.CollectionCourses)
	if err != nil {
		return nil, fmt.Errorf("progress: %w", err)
	}
	progress, _, err := store.GetCollection[record.CourseProgress](ctx, s.store, record.CollectionCourseProgress)
	if err != nil {
		return nil, fmt.Errorf("progress: %w", err)
	}
	if userID != "" {
		progress = relation.Where(progress, "userId", userID)
	}
	return aggregate.ProgressReport(courses, progress), nil
}
