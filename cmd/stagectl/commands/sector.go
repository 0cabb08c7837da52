package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/stagegate/internal/brain"
	"github.com/wonny/stagegate/internal/contracts"
	"github.com/wonny/stagegate/internal/s3_sector"
)

// sectorCmd represents the sector command
var sectorCmd = &cobra.Command{
	Use:   "sector",
	Short: "섹터 바스켓 조회/합성",
	Long: `섹터 바스켓(가중 합성 종목)을 조회하고 합성 결과를 점검합니다.

Subcommands:
  list   - 등록된 바스켓 목록
  show   - 바스켓 합성 + 커버리지 + 최근 스테이지 (저장 안 함)

Example:
  go run ./cmd/stagectl sector list
  go run ./cmd/stagectl sector show SEMI --as-of 2024-06-03 --days 10`,
}

var (
	sectorListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 바스켓 목록",
		RunE:  listSectors,
	}

	sectorShowCmd = &cobra.Command{
		Use:   "show [sector_id]",
		Short: "바스켓 합성 결과 점검",
		Args:  cobra.ExactArgs(1),
		RunE:  showSector,
	}
)

var (
	sectorAsOf string
	sectorDays int
)

func init() {
	rootCmd.AddCommand(sectorCmd)
	sectorCmd.AddCommand(sectorListCmd)
	sectorCmd.AddCommand(sectorShowCmd)

	sectorShowCmd.Flags().StringVar(&sectorAsOf, "as-of", "", "마지막 날짜 YYYY-MM-DD (기본: 오늘)")
	sectorShowCmd.Flags().IntVar(&sectorDays, "days", 10, "출력할 최근 거래일 수")
}

func listSectors(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	baskets, err := a.baskets.ListBaskets(ctx)
	if err != nil {
		return fmt.Errorf("list baskets: %w", err)
	}

	PrintHeader("Sector Baskets", "Count", strconv.Itoa(len(baskets)))

	widths := []int{12, 24, 8, 8}
	PrintTableHeader([]string{"ID", "Name", "Members", "Weight"}, widths)
	for _, b := range baskets {
		PrintTableRow([]string{
			b.ID,
			b.Name,
			strconv.Itoa(len(b.Members)),
			strconv.FormatFloat(b.WeightSum(), 'f', 4, 64),
		}, widths)
	}
	return nil
}

func showSector(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	sectorID := args[0]

	asOf, err := parseDateFlag(sectorAsOf)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	baskets, err := a.baskets.ListBaskets(ctx)
	if err != nil {
		return fmt.Errorf("list baskets: %w", err)
	}

	var basket *contracts.SectorBasket
	for i := range baskets {
		if baskets[i].ID == sectorID {
			basket = &baskets[i]
			break
		}
	}
	if basket == nil {
		return fmt.Errorf("sector %s not found", sectorID)
	}

	from := brain.HistoryStart(asOf, a.cfg.Pipeline.HistoryDays)
	memberBars, err := a.bars.GetRangeMany(ctx, basket.Codes(), from, asOf)
	if err != nil {
		return fmt.Errorf("load member bars: %w", err)
	}

	series, err := s3_sector.Aggregate(basket, memberBars, a.stageCfg)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	stats := s3_sector.Coverage(series)

	records, err := brain.ClassifySeries(contracts.Series{
		Kind: contracts.SeriesSector,
		ID:   basket.ID,
		Bars: series.PlainBars(),
	}, a.stageCfg)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	PrintHeader("Sector "+basket.ID,
		"Name", basket.Name,
		"Members", fmt.Sprintf("%d (with data: %d)", len(basket.Members), len(memberBars)),
		"Dates", strconv.Itoa(stats.Dates),
		"Skipped", strconv.Itoa(stats.Skipped),
		"Low cov.", strconv.Itoa(stats.LowCoverage),
		"Coverage", fmt.Sprintf("median %.3f / min %.3f", stats.Median, stats.Min),
	)

	// 상위 구성 종목
	members := append([]contracts.SectorMember(nil), basket.Members...)
	sort.Slice(members, func(i, j int) bool { return members[i].Weight > members[j].Weight })
	if len(members) > 5 {
		members = members[:5]
	}
	for _, m := range members {
		_, ok := memberBars[m.Code]
		PrintKeyValue(m.Code, fmt.Sprintf("%.4f  data=%t", m.Weight, ok), 8)
	}
	fmt.Println()

	start := len(series.Bars) - sectorDays
	if start < 0 {
		start = 0
	}

	widths := []int{10, 10, 6, 6, 20, 40}
	PrintTableHeader([]string{"Date", "Close", "Cov.", "Stage", "Name", "Reasons"}, widths)
	for i := start; i < len(series.Bars); i++ {
		b := series.Bars[i]
		rec := records[i]

		cov := strconv.FormatFloat(b.Coverage, 'f', 2, 64)
		if b.LowCoverage {
			cov += "*"
		}
		reasons := make([]string, len(rec.ReasonCodes))
		for j, c := range rec.ReasonCodes {
			reasons[j] = string(c)
		}

		PrintTableRow([]string{
			b.Date.Format(dateLayout),
			strconv.FormatFloat(b.Close, 'f', 2, 64),
			cov,
			strconv.Itoa(int(rec.Stage)),
			rec.Stage.String(),
			strings.Join(reasons, ","),
		}, widths)
	}
	return nil
}
