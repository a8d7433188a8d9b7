package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Qlikwatch/internal/domain"
	"github.com/shaiso/Qlikwatch/internal/repo"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(depsFn func() (*Deps, error), outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage monitoring runs",
	}

	cmd.AddCommand(
		newRunNowCmd(depsFn, outputFn),
		newRunListCmd(depsFn, outputFn),
		newRunShowCmd(depsFn, outputFn),
		newRunLogsCmd(depsFn, outputFn),
	)

	return cmd
}

func newRunNowCmd(depsFn func() (*Deps, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Request an immediate check of both platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFn()
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			run := &domain.Run{
				ID:          uuid.New(),
				Status:      domain.RunStatusPending,
				TriggeredBy: "cli",
				CreatedAt:   time.Now(),
			}
			if err := deps.RunRepo.Create(cmd.Context(), run); err != nil {
				return err
			}

			if deps.Publisher != nil {
				if err := deps.Publisher.PublishRunRequested(cmd.Context(), run.ID, "cli"); err != nil {
					out.Error(fmt.Sprintf("publish failed, runner will pick the run up via polling: %v", err))
				}
			}

			out.Success(fmt.Sprintf("Run requested: %s", run.ID))
			out.Print(
				[]string{"ID", "STATUS", "TRIGGERED_BY", "CREATED"},
				[][]string{{run.ID.String(), string(run.Status), run.TriggeredBy, formatTime(run.CreatedAt)}},
				run,
			)
			return nil
		},
	}
}

func newRunListCmd(depsFn func() (*Deps, error), outputFn func() *Output) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := depsFn()
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			runs, err := deps.RunRepo.List(cmd.Context(), repo.RunFilter{
				Status: domain.RunStatus(status),
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "OVERALL", "PARTIAL", "TRIGGERED_BY", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{
					r.ID.String(),
					string(r.Status),
					string(r.OverallStatus),
					strconv.FormatBool(r.Partial),
					r.TriggeredBy,
					formatTime(r.CreatedAt),
				}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")

	return cmd
}

func newRunShowCmd(depsFn func() (*Deps, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details and per-process verdicts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}

			deps, err := depsFn()
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			run, err := deps.RunRepo.GetByID(cmd.Context(), runID)
			if err != nil {
				return err
			}

			duration := ""
			if run.IsFinished() {
				duration = run.Duration().Truncate(time.Millisecond).String()
			}
			out.Print(
				[]string{"ID", "STATUS", "OVERALL", "PARTIAL", "DURATION", "ARTIFACT", "ERROR", "CREATED"},
				[][]string{{
					run.ID.String(),
					string(run.Status),
					string(run.OverallStatus),
					strconv.FormatBool(run.Partial),
					duration,
					run.ArtifactRef,
					run.Error,
					formatTime(run.CreatedAt),
				}},
				run,
			)

			reports, err := deps.ReportRepo.ListByRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				return nil
			}

			headers := []string{"PLATFORM", "PROCESS", "STATUS", "TASKS", "SUMMARY"}
			rows := make([][]string, len(reports))
			for i, r := range reports {
				rows[i] = []string{
					string(r.Platform),
					r.Group,
					string(r.Report.Status),
					strconv.Itoa(r.Report.TaskCount),
					r.Report.Summary,
				}
			}
			out.Print(headers, rows, reports)
			return nil
		},
	}
}

func newRunLogsCmd(depsFn func() (*Deps, error), outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "logs ID",
		Short: "Show the execution log of a finished run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}

			deps, err := depsFn()
			if err != nil {
				return err
			}
			defer deps.Close()
			out := outputFn()

			snap, err := deps.RunRepo.GetSnapshot(cmd.Context(), runID)
			if err != nil {
				return err
			}

			headers := []string{"TIME", "MESSAGE"}
			rows := make([][]string, len(snap.Logs))
			for i, entry := range snap.Logs {
				rows[i] = []string{formatTime(entry.Time), entry.Message}
			}
			out.Print(headers, rows, snap.Logs)
			return nil
		},
	}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
