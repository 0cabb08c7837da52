package brain

import (
	"context"
	"sort"
	"sync"

	"github.com/wonny/stagegate/internal/contracts"
)

// job is one unit of per-series work
type job struct {
	kind contracts.SeriesKind
	id   string
	run  func(ctx context.Context, workerID int) SeriesResult
}

// runPool fans jobs out to workers and collects one result per job.
// 시리즈 간 상태 공유 없음: 한 시리즈 실패가 다른 시리즈에 영향 없음
func runPool(ctx context.Context, workers int, jobs []job) []SeriesResult {
	if workers <= 0 {
		workers = 1
	}

	resultCh := make(chan SeriesResult, len(jobs))
	jobCh := make(chan job, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobCh {
				select {
				case <-ctx.Done():
					resultCh <- SeriesResult{Kind: j.kind, ID: j.id, Err: ctx.Err(), Error: ctx.Err().Error()}
					continue
				default:
				}
				resultCh <- j.run(ctx, workerID)
			}
		}(i)
	}

	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]SeriesResult, 0, len(jobs))
	for r := range resultCh {
		results = append(results, r)
	}

	// 실행 순서와 무관하게 결정적 출력
	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}
