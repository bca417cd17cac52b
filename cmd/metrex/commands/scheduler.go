package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/metrex/internal/jobconfig"
	"github.com/wonny/metrex/internal/scheduler"
	"github.com/wonny/metrex/internal/scheduler/jobs"
)

var jobsFile string

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `잡 파일(YAML)에 정의된 지표/랭킹 배치를 cron 스케줄로 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 스케줄과 다음 실행 시각

Example:
  go run ./cmd/metrex scheduler start --jobs jobs.yaml
  go run ./cmd/metrex scheduler run hourly_rank --jobs jobs.yaml`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 잡 파일의 모든 작업을 스케줄합니다.

같은 작업이 아직 실행 중이면 다음 실행은 건너뜁니다.
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

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 스케줄과 다음 실행 시각",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)

	schedulerCmd.PersistentFlags().StringVar(&jobsFile, "jobs", "jobs.yaml", "job file")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== metrex Scheduler ===")

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		fmt.Printf("  - %s (next: %s)\n", jobName, next.Format("2006-01-02 15:04:05"))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	ctx, stop := signalContext()
	defer stop()
	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	printStats(sched.GetJobStats())
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	f, err := jobconfig.Load(jobsFile)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	fmt.Println("Registered jobs:")
	for _, j := range f.Jobs {
		fmt.Printf("  - %-20s %-8s %-16s %s\n", j.Name, j.Mode, j.Schedule, j.Output)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	ctx, stop := signalContext()
	defer stop()

	result, err := sched.RunJob(ctx, jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	fmt.Printf("✅ Job %s completed in %.2fs (%d attempt(s))\n", jobName, result.Duration.Seconds(), result.Attempts)
	printReport(result.Report)
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	f, err := jobconfig.Load(jobsFile)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	now := time.Now()
	fmt.Println("Job Schedule:")
	fmt.Println()

	for _, j := range f.Jobs {
		fmt.Printf("📊 %s\n", j.Name)
		fmt.Printf("   Schedule: %s\n", j.Schedule)
		fmt.Printf("   Mode: %s (%s)\n", j.Mode, j.Timerange)
		if next, err := j.Next(now); err == nil {
			fmt.Printf("   Next Run: %s\n", next.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("   Output: %s\n", j.Output)
		fmt.Println()
	}

	return nil
}

func printStats(stats map[string]scheduler.JobStats) {
	for jobName, stat := range stats {
		if stat.TotalRuns == 0 {
			continue
		}
		fmt.Printf("📊 %s: %d runs, %.1f%% success, %d rows written\n", jobName, stat.TotalRuns, stat.SuccessRate*100, stat.RowsWritten)
		if stat.LastFailure != nil {
			fmt.Printf("   Last Failure: %s\n", stat.LastFailure.Format("2006-01-02 15:04:05"))
		}
		if stat.StaleStreak > 0 {
			fmt.Printf("   ⚠️  No new candles for %d run(s)\n", stat.StaleStreak)
		}
	}
}

func printReport(rep scheduler.RunReport) {
	switch rep.Mode {
	case "rank":
		fmt.Printf("   %d instrument(s): %d updated, %d unchanged, %d rows → %s\n",
			rep.Instruments, rep.Updated, rep.Unchanged, rep.Rows, rep.Output)
	default:
		fmt.Printf("   %d instrument(s), %d rows → %s\n", rep.Instruments, rep.Rows, rep.Output)
	}
}

// initScheduler loads the job file and registers one PipelineJob per entry.
// The returned func releases the shared database pool, if one was opened.
func initScheduler() (*scheduler.Scheduler, func(), error) {
	// 1. Load config
	cfg, log, err := loadRuntime()
	if err != nil {
		return nil, nil, err
	}

	// 2. Load job file
	f, err := jobconfig.Load(jobsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load jobs: %w", err)
	}

	// 3. Create processor
	proc, _, err := newProcessor(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	// 4. Create scheduler and register jobs
	stores := newRankStores(cfg, log)
	sched := scheduler.New(cfg.Scheduler, log)
	for _, spec := range f.Jobs {
		if err := sched.AddJob(jobs.NewPipelineJob(spec, proc, stores.open, log)); err != nil {
			stores.close()
			return nil, nil, err
		}
	}

	return sched, stores.close, nil
}
