package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tgoodwin/scribe/internal/docsearch"
	"github.com/tgoodwin/scribe/internal/logging"
	"github.com/tgoodwin/scribe/pkg/models"
)

// SpecialistAgent resolves a single subtask against the documentation search
// service. Instances are safe to invoke concurrently as long as each SubTask
// is owned by exactly one in-flight invocation: the agent writes the
// subtask's Status in place.
type SpecialistAgent struct {
	searcher docsearch.Searcher
	timeout  time.Duration
	log      *logging.Logger
}

// defaultSearchTimeout bounds one specialist search when no timeout is configured.
const defaultSearchTimeout = 15 * time.Second

// NewSpecialistAgent creates an agent with the given search capability and
// per-invocation timeout. A zero timeout selects the default of 15s.
func NewSpecialistAgent(searcher docsearch.Searcher, timeout time.Duration, log *logging.Logger) *SpecialistAgent {
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}
	if log == nil {
		log = logging.Discard()
	}
	return &SpecialistAgent{searcher: searcher, timeout: timeout, log: log}
}

// SearchForSubtask queries the documentation service for the subtask,
// requesting pageSize matches, and returns at most maxCommands of them.
// A non-positive pageSize falls back to maxCommands. The query is the bare
// subtask description, never the full user request, to keep retrieval
// focused. Errors and timeouts never escape: they are converted into a
// failed SearchResult and the subtask is marked failed.
func (a *SpecialistAgent) SearchForSubtask(ctx context.Context, st *models.SubTask, pageSize, maxCommands int) (result models.SearchResult) {
	st.Status = models.SubTaskStatusInProgress
	start := time.Now()

	result.SubTaskID = st.ID

	defer func() {
		result.ExecutionTime = time.Since(start)
		if r := recover(); r != nil {
			a.log.Errorf("specialist agent for subtask %d panicked: %v", st.ID, r)
			st.Status = models.SubTaskStatusFailed
			result = models.SearchResult{
				SubTaskID:     st.ID,
				Success:       false,
				ErrorMessage:  fmt.Sprintf("search panicked: %v", r),
				ExecutionTime: time.Since(start),
			}
		}
	}()

	searchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if pageSize <= 0 {
		pageSize = maxCommands
	}
	matches, err := a.searcher.Search(searchCtx, st.Description, pageSize)
	if err != nil {
		st.Status = models.SubTaskStatusFailed
		result.Success = false
		if errors.Is(err, context.DeadlineExceeded) {
			result.ErrorMessage = fmt.Sprintf("search for subtask %d timed out after %s", st.ID, a.timeout)
		} else {
			result.ErrorMessage = err.Error()
		}
		a.log.Warnf("subtask %d search failed: %s", st.ID, result.ErrorMessage)
		return result
	}

	if len(matches) > maxCommands {
		matches = matches[:maxCommands]
	}

	st.Status = models.SubTaskStatusCompleted
	result.Success = true
	result.Commands = matches
	a.log.Debugf("subtask %d found %d commands in %s", st.ID, len(matches), time.Since(start))
	return result
}
