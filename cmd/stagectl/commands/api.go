package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stagegate/internal/api"
	"github.com/wonny/stagegate/internal/api/handlers"
	"github.com/wonny/stagegate/internal/brain"
	"github.com/wonny/stagegate/internal/scheduler"
	"github.com/wonny/stagegate/internal/scheduler/jobs"
	"github.com/wonny/stagegate/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- 저장된 섹터 스테이지로 게이트 로드
- 스케줄러가 새 분류를 저장하면 게이트 재적재 (GATE_REFRESH_SCHEDULE)
- 스테이지/게이트 조회 엔드포인트 제공
- 분류 실행 트리거 제공 (--allow-runs)

Endpoints:
  GET  /health                               - Health check
  GET  /metrics                              - Prometheus metrics
  GET  /api/v1/config                        - 스테이지 설정 + 해시
  GET  /api/v1/stages/{kind}                 - 최신 스테이지 (kind: instrument|sector)
  GET  /api/v1/stages/{kind}/{id}            - 스테이지 시퀀스
  GET  /api/v1/gate/sectors                  - 전체 섹터 판정
  GET  /api/v1/gate/sectors/{id}             - 섹터 판정
  GET  /api/v1/gate/instruments/{code}       - 종목의 섹터 판정
  POST /api/v1/runs                          - 분류 실행

Example:
  go run ./cmd/stagectl api
  go run ./cmd/stagectl api --port 8089 --allow-runs`,
	RunE: runAPIServer,
}

var (
	apiPort         string
	apiAllowRuns    bool
	apiGateLookback int
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiAllowRuns, "allow-runs", false, "POST /api/v1/runs 활성화")
	apiCmd.Flags().IntVar(&apiGateLookback, "gate-lookback", -1, "게이트 로드 기간 (달력일, 기본: GATE_LOOKBACK_DAYS, 0 = 전체)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	log := a.log.Component("api")

	// 1. Gate from stored sector stages, 새 run이 저장되면 재적재
	lookback := a.cfg.Pipeline.GateLookbackDays
	if apiGateLookback >= 0 {
		lookback = apiGateLookback
	}
	refresher := brain.NewGateRefresher(a.orch, a.stages, lookback, a.log)
	today, _ := parseDateFlag("")
	if _, err := refresher.Refresh(ctx, today); err != nil {
		return fmt.Errorf("load gate: %w", err)
	}

	sched := scheduler.New(a.log, scheduler.WithRetry(1, 10*time.Second))
	if err := sched.AddJob(jobs.NewGateRefreshJob(refresher, a.cfg.Pipeline.GateRefreshSchedule, a.log)); err != nil {
		return fmt.Errorf("add gate refresh job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// 2. Handlers
	deps := healthDeps(a)
	routerDeps := api.RouterDeps{
		Stages:  handlers.NewStageHandler(a.stages, a.cache, a.configHash, log),
		Gate:    handlers.NewGateHandler(a.gate, a.cache, a.configHash, a.metrics, log),
		System:  handlers.NewSystemHandler(a.stageCfg, a.configHash, deps),
		Metrics: a.metrics,
		Logger:  log,
	}
	if a.registry != nil {
		routerDeps.Gatherer = a.registry
	}
	if apiAllowRuns {
		routerDeps.Runs = handlers.NewRunHandler(a.orch, a.cfg.Pipeline.Workers, a.cfg.Pipeline.HistoryDays, gitCommit, log)
	}

	// 3. Rate limit (Redis 사용 시 인스턴스 간 공유)
	var shared *redis.RateLimiter
	if a.redis.Enabled() {
		shared = redis.NewRateLimiter(a.redis, "stagegate")
	}
	routerDeps.Limiter = api.NewRateLimiter(a.cfg.APIRateLimit, a.cfg.APIRateBurst, shared, log)

	// 4. Server
	server := api.New(a.cfg, a.log, api.NewRouter(routerDeps))

	fmt.Printf("\n✅ Server running on http://localhost:%s (config %s)\n", a.cfg.Port, a.configHash[:12])
	fmt.Printf("   Gate sectors loaded: %d (run %d, refresh %s)\n", len(a.gate.Sectors()), refresher.RunID(), a.cfg.Pipeline.GateRefreshSchedule)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}

// healthDeps lists the dependencies checked by /health
func healthDeps(a *app) map[string]handlers.Pinger {
	deps := map[string]handlers.Pinger{
		"database": a.db,
	}
	if a.redis.Enabled() {
		deps["redis"] = a.redis
	}
	return deps
}
