package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/lexstore/internal/service"
)

// LessonOptions holds flags for the complete-lesson command.
type LessonOptions struct {
	*RootOptions
	User   string
	Course string
	Lesson string
}

// NewCompleteLessonCommand creates the complete-lesson command.
func NewCompleteLessonCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LessonOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "complete-lesson",
		Short: "Mark a lesson completed",
		Long: `Mark a lesson of a course completed and print the course completion.

Completing the same lesson again changes nothing.

Example:
  lexstore complete-lesson --user 42 --course derecho-familia --lesson l3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompleteLesson(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user id (empty for single-user installs)")
	cmd.Flags().StringVar(&opts.Course, "course", "", "course id")
	cmd.Flags().StringVar(&opts.Lesson, "lesson", "", "lesson id")

	return cmd
}

func runCompleteLesson(opts *LessonOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	return opts.withService(cmd.Context(), func(svc *service.Service) error {
		res, err := svc.CompleteLesson(cmd.Context(), opts.User, opts.Course, opts.Lesson)
		if err != nil {
			return out.Fail("complete lesson", err)
		}
		return out.Render(res, func(w io.Writer) {
			done := len(res.Progress.CompletedLessons)
			if res.Percent < 0 {
				fmt.Fprintf(w, "✓ %s: %d lessons completed (course not found)\n", opts.Course, done)
				return
			}
			fmt.Fprintf(w, "✓ %s: %d lessons completed, %d%%\n", opts.Course, done, res.Percent)
		})
	})
}

// ProgressOptions holds flags for the progress command.
type ProgressOptions struct {
	*RootOptions
	User string
}

// NewProgressCommand creates the progress command.
func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProgressOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show course completion",
		Long: `Show completion for every course a user has progress in.

Example:
  lexstore progress --user 42`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user id (empty for single-user installs)")

	return cmd
}

func runProgress(opts *ProgressOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	return opts.withService(cmd.Context(), func(svc *service.Service) error {
		rows, err := svc.Progress(cmd.Context(), opts.User)
		if err != nil {
			return out.Fail("progress", err)
		}
		return out.Render(rows, func(w io.Writer) {
			if len(rows) == 0 {
				fmt.Fprintln(w, "No courses in progress.")
				return
			}
			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COURSE\tTITLE\tDONE\tPERCENT")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d%%\n", r.CourseID, r.Title, r.Completed, r.TotalLessons, r.Percent)
			}
			tw.Flush()
		})
	})
}
