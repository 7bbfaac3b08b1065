package scanner

import (
	"log/slog"
	"sync"

	"github.com/alejandrodnm/polyclaw/internal/domain"
	"github.com/alejandrodnm/polyclaw/internal/signal"
)

// scoreJob es la unidad de trabajo del pool: un mercado con su evidencia.
type scoreJob struct {
	market domain.Market
	sigs   []domain.Signal
	llm    *domain.LLMEstimate
}

// scoreConcurrent agrega las señales de cada mercado en paralelo usando un
// pool de workers de tamaño fijo. La agregación es CPU-bound y pura, así
// que no hay límite de rate que respetar, solo el número de workers.
func scoreConcurrent(
	agg *signal.Aggregator,
	markets []domain.Market,
	grouped map[string][]domain.Signal,
	estimates map[string]domain.LLMEstimate,
	workers int,
	log *slog.Logger,
) []domain.ScoredSignal {
	if workers < 1 {
		workers = 1
	}

	jobs := buildJobs(markets, grouped, estimates)
	if len(jobs) == 0 {
		return nil
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	workCh := make(chan scoreJob, len(jobs))
	resultCh := make(chan domain.ScoredSignal, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range workCh {
				scored, ok := agg.Aggregate(job.market, job.sigs, job.llm)
				if !ok {
					continue
				}
				resultCh <- scored
			}
		}()
	}

	for _, job := range jobs {
		workCh <- job
	}
	close(workCh)

	wg.Wait()
	close(resultCh)

	results := make([]domain.ScoredSignal, 0, len(jobs))
	for scored := range resultCh {
		results = append(results, scored)
	}

	log.Debug("scoring complete", "candidates", len(jobs), "scored", len(results), "workers", workers)
	return results
}

// buildJobs arma un job por mercado con evidencia, sea del matcher o del LLM.
func buildJobs(markets []domain.Market, grouped map[string][]domain.Signal, estimates map[string]domain.LLMEstimate) []scoreJob {
	jobs := make([]scoreJob, 0, len(grouped))
	for _, m := range markets {
		sigs := grouped[m.ConditionID]

		var llm *domain.LLMEstimate
		if est, ok := estimates[m.ConditionID]; ok {
			e := est
			llm = &e
		}

		if len(sigs) == 0 && llm == nil {
			continue
		}
		jobs = append(jobs, scoreJob{market: m, sigs: sigs, llm: llm})
	}
	return jobs
}
