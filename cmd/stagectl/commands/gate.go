package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/stagegate/internal/contracts"
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "섹터 게이트 조회",
	Long: `저장된 섹터 스테이지로 게이트 판정을 조회합니다.

Subcommands:
  list        - 전체 섹터 판정
  sector      - 특정 섹터 판정
  instrument  - 종목이 속한 섹터의 판정

Example:
  go run ./cmd/stagectl gate list --date 2024-06-03
  go run ./cmd/stagectl gate sector SEMI --date 2024-06-03
  go run ./cmd/stagectl gate instrument 005930`,
}

var (
	gateListCmd = &cobra.Command{
		Use:   "list",
		Short: "전체 섹터 판정",
		RunE:  listGate,
	}

	gateSectorCmd = &cobra.Command{
		Use:   "sector [sector_id]",
		Short: "특정 섹터 판정",
		Args:  cobra.ExactArgs(1),
		RunE:  checkSectorGate,
	}

	gateInstrumentCmd = &cobra.Command{
		Use:   "instrument [code]",
		Short: "종목의 섹터 판정",
		Args:  cobra.ExactArgs(1),
		RunE:  checkInstrumentGate,
	}
)

var gateDate string

func init() {
	rootCmd.AddCommand(gateCmd)
	gateCmd.AddCommand(gateListCmd)
	gateCmd.AddCommand(gateSectorCmd)
	gateCmd.AddCommand(gateInstrumentCmd)

	gateCmd.PersistentFlags().StringVar(&gateDate, "date", "", "판정 날짜 YYYY-MM-DD (기본: 오늘)")
}

// withGate loads the gate from stored sector stages and calls fn
func withGate(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := parseDateFlag(gateDate)
	if err != nil {
		return err
	}

	// 연속 허용일 판정에 필요한 만큼만 과거 로드
	lookback := a.stageCfg.Gate.MinConsecutiveDaysInAllow*3 + 10
	if err := a.orch.LoadGate(ctx, date.AddDate(0, 0, -lookback), date); err != nil {
		return fmt.Errorf("load gate: %w", err)
	}
	return fn(ctx, a)
}

func printDecision(d contracts.GateDecision) {
	status := "❌ BLOCK"
	if d.Allowed {
		status = "✅ " + string(d.Permission)
	}
	PrintKeyValue("Sector", d.SectorID, 10)
	PrintKeyValue("Decision", status, 10)
	PrintKeyValue("Risk x", strconv.FormatFloat(d.RiskMultiplier, 'f', 2, 64), 10)
	if d.Stage != 0 {
		PrintKeyValue("Stage", fmt.Sprintf("%d (%s)", d.Stage, d.StageName), 10)
	}
	PrintKeyValue("Reason", string(d.Reason), 10)
}

func listGate(cmd *cobra.Command, args []string) error {
	return withGate(func(ctx context.Context, a *app) error {
		date, _ := parseDateFlag(gateDate)
		decisions := a.gate.DecideAll(date)

		allowed := 0
		for _, d := range decisions {
			if d.Allowed {
				allowed++
			}
		}

		PrintHeader("Sector Gate",
			"Date", date.Format(dateLayout),
			"Sectors", strconv.Itoa(len(decisions)),
			"Allowed", strconv.Itoa(allowed),
		)

		widths := []int{12, 8, 6, 6, 36}
		PrintTableHeader([]string{"Sector", "Perm.", "Risk", "Stage", "Reason"}, widths)
		for _, d := range decisions {
			stage := "-"
			if d.Stage != 0 {
				stage = strconv.Itoa(int(d.Stage))
			}
			PrintTableRow([]string{
				d.SectorID,
				string(d.Permission),
				strconv.FormatFloat(d.RiskMultiplier, 'f', 2, 64),
				stage,
				string(d.Reason),
			}, widths)
		}
		return nil
	})
}

func checkSectorGate(cmd *cobra.Command, args []string) error {
	return withGate(func(ctx context.Context, a *app) error {
		date, _ := parseDateFlag(gateDate)
		PrintHeader("Sector Gate", "Date", date.Format(dateLayout))
		printDecision(a.gate.Decide(args[0], date))
		return nil
	})
}

func checkInstrumentGate(cmd *cobra.Command, args []string) error {
	return withGate(func(ctx context.Context, a *app) error {
		date, _ := parseDateFlag(gateDate)
		PrintHeader("Instrument Gate", "Code", args[0], "Date", date.Format(dateLayout))
		printDecision(a.gate.DecideForInstrument(args[0], date))
		return nil
	})
}
