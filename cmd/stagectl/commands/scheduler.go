package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stagegate/internal/scheduler"
	"github.com/wonny/stagegate/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `일별 스테이지 재분류 스케줄러를 시작하거나 작업을 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록 + 다음 실행 시각
  run     - 특정 작업 즉시 실행 (동기)

Example:
  go run ./cmd/stagectl scheduler start
  go run ./cmd/stagectl scheduler list
  go run ./cmd/stagectl scheduler run stage_classification`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- stage_classification: PIPELINE_SCHEDULE (기본 평일 18:30 KST, 종목/섹터 전체 재분류)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Stagegate Scheduler ===")

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(sched)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	printJobs(sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	fmt.Println("\nRegistered jobs:")
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		st := stats[name]
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format(time.RFC3339)
		}
		fmt.Printf("  - %s  [%s]  next: %s\n", name, st.Schedule, next)
		if st.LastSummary != nil {
			fmt.Printf("      last: %s  series %d ok / %d failed (degraded runs: %d)\n",
				st.LastSummary.AsOf, st.LastSummary.Succeeded, st.LastSummary.Failed, st.DegradedCount)
		}
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	result, err := sched.RunJob(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(fmt.Sprintf("Job failed after %s: %s", result.Duration, result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(fmt.Sprintf("Job completed in %s (%d attempt(s))", result.Duration, result.Attempts))
	if sum := result.Summary; sum != nil {
		fmt.Printf("  as_of=%s succeeded=%d failed=%d config=%s\n", sum.AsOf, sum.Succeeded, sum.Failed, sum.ConfigHash)
		if result.Degraded() {
			PrintWarning(fmt.Sprintf("%d series failed, see logs", sum.Failed))
		}
	}
	return nil
}

func initScheduler() (*app, *scheduler.Scheduler, error) {
	a, err := newApp(context.Background())
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log, scheduler.WithRetry(2, 5*time.Minute))

	job := jobs.NewStageClassificationJob(
		a.orch,
		a.cfg.Pipeline.Schedule,
		a.cfg.Pipeline.Workers,
		a.cfg.Pipeline.HistoryDays,
		gitCommit,
		a.log,
	)
	if err := sched.AddJob(job); err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("add job: %w", err)
	}

	return a, sched, nil
}
