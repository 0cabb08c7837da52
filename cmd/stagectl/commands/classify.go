package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stagegate/internal/brain"
	"github.com/wonny/stagegate/internal/contracts"
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "종목/섹터 스테이지 분류 실행",
	Long: `저장된 일봉으로 종목과 섹터 바스켓을 분류하고 결과를 저장합니다.

이 명령어는:
- 종목별 지표 계산 → 스테이지 분류 (병렬 워커)
- 섹터 바스켓 합성 → 섹터 스테이지 분류
- 스테이지 시퀀스 저장 (재실행 시 전체 교체)
- 실행 스냅샷(config hash, git commit) 저장

Example:
  go run ./cmd/stagectl classify --as-of 2024-06-03
  go run ./cmd/stagectl classify --codes 005930,000660 --no-sectors
  go run ./cmd/stagectl classify --dry-run`,
	RunE: runClassify,
}

var (
	classifyAsOf        string
	classifyCodes       []string
	classifyWorkers     int
	classifyHistoryDays int
	classifyNoSectors   bool
	classifyNoInstr     bool
	classifyDryRun      bool
)

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(&classifyAsOf, "as-of", "", "마지막 분류 날짜 YYYY-MM-DD (기본: 오늘)")
	classifyCmd.Flags().StringSliceVar(&classifyCodes, "codes", nil, "분류할 종목 코드 (기본: 전체)")
	classifyCmd.Flags().IntVar(&classifyWorkers, "workers", 0, "워커 수 (기본: PIPELINE_WORKERS)")
	classifyCmd.Flags().IntVar(&classifyHistoryDays, "history-days", 0, "과거 달력일 수, 0이면 전체 이력 (기본: PIPELINE_HISTORY_DAYS)")
	classifyCmd.Flags().BoolVar(&classifyNoSectors, "no-sectors", false, "섹터 분류 생략")
	classifyCmd.Flags().BoolVar(&classifyNoInstr, "no-instruments", false, "종목 분류 생략")
	classifyCmd.Flags().BoolVar(&classifyDryRun, "dry-run", false, "저장하지 않고 결과만 출력")
}

func runClassify(cmd *cobra.Command, args []string) error {
	asOf, err := parseDateFlag(classifyAsOf)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rc := brain.RunConfig{
		AsOf:        asOf,
		HistoryDays: a.cfg.Pipeline.HistoryDays,
		Workers:     a.cfg.Pipeline.Workers,
		GitSHA:      gitCommit,
		Codes:       classifyCodes,
		Instruments: !classifyNoInstr,
		Sectors:     !classifyNoSectors,
		DryRun:      classifyDryRun,
	}
	if classifyWorkers > 0 {
		rc.Workers = classifyWorkers
	}
	if classifyHistoryDays > 0 {
		rc.HistoryDays = classifyHistoryDays
	}

	PrintHeader("Stage Classification",
		"As of", asOf.Format(dateLayout),
		"Config", a.configHash[:12],
		"Workers", strconv.Itoa(rc.Workers),
		"Dry run", strconv.FormatBool(rc.DryRun),
	)

	result, err := a.orch.Run(ctx, rc)
	if err != nil {
		return fmt.Errorf("classification run: %w", err)
	}

	printSeriesResults("Instruments", result.Instruments)
	printSeriesResults("Sectors", result.Sectors)

	fmt.Println()
	PrintSeparator()
	fmt.Printf("  Succeeded: %d  Failed: %d  Duration: %s\n", result.Succeeded, result.Failed, result.Duration)
	PrintSeparator()

	if result.Failed > 0 {
		PrintWarning(fmt.Sprintf("%d series failed (see errors above)", result.Failed))
	} else {
		PrintSuccess("Classification completed")
	}
	return nil
}

// printSeriesResults prints the stage distribution and failures of one kind
func printSeriesResults(title string, results []brain.SeriesResult) {
	if len(results) == 0 {
		return
	}

	fmt.Printf("\n[%s] %d series\n", title, len(results))

	totals := make(map[contracts.Stage]int)
	for _, r := range results {
		if r.Latest != nil {
			totals[r.Latest.Stage]++
		}
	}

	widths := []int{4, 22, 6}
	PrintTableHeader([]string{"#", "Latest stage", "Count"}, widths)
	for _, s := range contracts.AllStages() {
		if totals[s] == 0 {
			continue
		}
		PrintTableRow([]string{strconv.Itoa(int(s)), s.String(), strconv.Itoa(totals[s])}, widths)
	}

	var failed []string
	for _, r := range results {
		if r.Error != "" {
			failed = append(failed, fmt.Sprintf("%s: %s", r.ID, r.Error))
		}
	}
	sort.Strings(failed)
	if len(failed) > 0 {
		fmt.Println()
		PrintError(fmt.Sprintf("%d failed:", len(failed)))
		fmt.Println("   " + strings.Join(failed, "\n   "))
	}
}
