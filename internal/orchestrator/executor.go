package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tgoodwin/scribe/internal/logging"
	"github.com/tgoodwin/scribe/pkg/models"
)

// AgentFunc runs one specialist agent invocation for a subtask.
type AgentFunc func(ctx context.Context, st *models.SubTask) models.SearchResult

// ParallelExecutor fans out specialist agents with a concurrency cap.
// Subtask batches beyond the cap run sequentially, each batch with full
// parallelism, so simultaneous outbound load on the search service is
// bounded by maxConcurrent.
type ParallelExecutor struct {
	maxConcurrent int
	log           *logging.Logger
}

// defaultMaxConcurrentAgents caps parallel agents when no value is configured.
const defaultMaxConcurrentAgents = 10

// NewParallelExecutor creates an executor with the given concurrency cap.
// A non-positive cap selects the default of 10.
func NewParallelExecutor(maxConcurrent int, log *logging.Logger) *ParallelExecutor {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentAgents
	}
	if log == nil {
		log = logging.Discard()
	}
	return &ParallelExecutor{maxConcurrent: maxConcurrent, log: log}
}

// ExecuteAgents runs agentFn once per subtask and collects every result,
// including failures. One agent panicking or failing never crashes sibling
// agents or the batch. Result order within a parallel batch is completion
// order; consumers must key on SearchResult.SubTaskID, never list position.
func (e *ParallelExecutor) ExecuteAgents(ctx context.Context, subtasks []*models.SubTask, agentFn AgentFunc) []models.SearchResult {
	switch {
	case len(subtasks) == 0:
		return []models.SearchResult{}
	case len(subtasks) == 1:
		// Single subtask skips the concurrency machinery entirely.
		return []models.SearchResult{e.runAgent(ctx, subtasks[0], agentFn)}
	}

	results := make([]models.SearchResult, 0, len(subtasks))
	for start := 0; start < len(subtasks); start += e.maxConcurrent {
		end := start + e.maxConcurrent
		if end > len(subtasks) {
			end = len(subtasks)
		}
		batch := subtasks[start:end]

		if len(subtasks) > e.maxConcurrent {
			e.log.Debugf("executing batch of %d agents (%d-%d of %d)", len(batch), start+1, end, len(subtasks))
		}

		results = append(results, e.runBatch(ctx, batch, agentFn)...)
	}

	return results
}

// runBatch executes one batch of agents fully in parallel and returns their
// results in completion order.
func (e *ParallelExecutor) runBatch(ctx context.Context, batch []*models.SubTask, agentFn AgentFunc) []models.SearchResult {
	var (
		mu      sync.Mutex
		results = make([]models.SearchResult, 0, len(batch))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, st := range batch {
		st := st
		g.Go(func() error {
			result := e.runAgent(ctx, st, agentFn)

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	// Agents never return errors through the group; failures are captured in
	// their SearchResult.
	_ = g.Wait()

	return results
}

// runAgent invokes agentFn with panic isolation: a panicking agent yields a
// failed SearchResult instead of taking down the batch.
func (e *ParallelExecutor) runAgent(ctx context.Context, st *models.SubTask, agentFn AgentFunc) (result models.SearchResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("agent for subtask %d panicked: %v", st.ID, r)
			st.Status = models.SubTaskStatusFailed
			result = models.SearchResult{
				SubTaskID:    st.ID,
				Success:      false,
				ErrorMessage: fmt.Sprintf("agent panicked: %v", r),
			}
		}
	}()

	return agentFn(ctx, st)
}

// ShouldAbortDueToFailures reports whether the pipeline must stop before
// assembly: true when more than half of the results failed, or when there
// are no results at all. This guards against assembling a script from
// mostly-missing information.
func ShouldAbortDueToFailures(results []models.SearchResult) bool {
	if len(results) == 0 {
		return true
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}

	return float64(failed)/float64(len(results)) > 0.5
}
