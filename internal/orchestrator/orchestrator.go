package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tgoodwin/scribe/internal/config"
	"github.com/tgoodwin/scribe/internal/docsearch"
	"github.com/tgoodwin/scribe/internal/llm"
	"github.com/tgoodwin/scribe/internal/logging"
	"github.com/tgoodwin/scribe/pkg/models"
)

// Flat per-call charges folded into the cost estimate, covering request
// overhead that token pricing alone misses.
const (
	costPerDecomposition = 0.010
	costPerAgentSearch   = 0.002
	costPerAssembly      = 0.015
)

// Orchestrator sequences the pipeline: decompose the request, fan out
// specialist searches, then assemble the final script. It is the outermost
// exception boundary: no panic escapes ProcessRequest. The orchestrator
// holds no state between requests beyond configuration.
type Orchestrator struct {
	cfg        *config.Config
	decomposer *Decomposer
	specialist *SpecialistAgent
	executor   *ParallelExecutor
	assembler  *Assembler
	tracker    *llm.TokenTracker
	log        *logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTokenTracker attaches a token tracker whose cost delta is folded into
// each run's estimated cost.
func WithTokenTracker(t *llm.TokenTracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// New creates an Orchestrator wiring the completion and search capabilities
// into the pipeline components. Both capabilities are injected; components
// never reach for ambient clients.
func New(cfg *config.Config, completer llm.Completer, searcher docsearch.Searcher, log *logging.Logger, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logging.Discard()
	}

	o := &Orchestrator{
		cfg:        cfg,
		decomposer: NewDecomposer(completer, log),
		specialist: NewSpecialistAgent(searcher, cfg.Timeouts.SpecialistSearch, log),
		executor:   NewParallelExecutor(cfg.Orchestrator.MaxConcurrentAgents, log),
		assembler:  NewAssembler(completer, log),
		log:        log,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// phaseContext bounds one pipeline phase. A non-positive timeout leaves the
// phase limited only by the caller's context.
func phaseContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// ProcessRequest runs the full pipeline for one user request:
// Decompose -> ParallelSearch -> abort check -> Assemble.
// The caller always receives a structured result; a failed run still carries
// the metrics of whatever phases completed.
func (o *Orchestrator) ProcessRequest(ctx context.Context, userRequest string) (result *models.OrchestrationResult) {
	start := time.Now()

	result = &models.OrchestrationResult{
		RunID:     uuid.New().String(),
		Request:   userRequest,
		CreatedAt: start,
	}

	var costBefore float64
	if o.tracker != nil {
		costBefore = o.tracker.Cost()
	}

	defer func() {
		if r := recover(); r != nil {
			o.log.Errorf("orchestration run %s panicked: %v", result.RunID, r)
			result.Success = false
			result.Errors = append(result.Errors, fmt.Sprintf("internal error: %v", r))
		}
		result.Metrics.TotalTime = time.Since(start)
		if o.tracker != nil {
			result.Metrics.EstimatedCost += o.tracker.Cost() - costBefore
		}
	}()

	o.log.Infof("run %s: processing request %q", result.RunID, userRequest)

	// Phase 1: decomposition.
	decompStart := time.Now()
	decompCtx, cancelDecomp := phaseContext(ctx, o.cfg.Timeouts.Decomposition)
	decomposition := o.decomposer.Decompose(decompCtx, userRequest)
	cancelDecomp()
	result.Metrics.DecompositionTime = time.Since(decompStart)
	result.Metrics.EstimatedCost += costPerDecomposition

	if !decomposition.Success {
		result.Errors = append(result.Errors, decomposition.ErrorMessage)
		return result
	}

	subtasks := decomposition.SubTasks
	result.Metrics.SubTaskCount = len(subtasks)
	o.log.Infof("run %s: decomposed into %d subtasks", result.RunID, len(subtasks))

	if limit := o.cfg.Orchestrator.MaxSubTasksPerRequest; limit > 0 && len(subtasks) > limit {
		// Advisory cap only; the run proceeds.
		warning := fmt.Sprintf("decomposition produced %d subtasks, above the advisory cap of %d", len(subtasks), limit)
		o.log.Warnf("run %s: %s", result.RunID, warning)
		result.Warnings = append(result.Warnings, warning)
	}

	// Phase 2: parallel specialist search.
	searchStart := time.Now()
	pageSize := o.cfg.Search.PageSize
	maxCommands := o.cfg.Orchestrator.MaxCommandsPerSubTask
	searchResults := o.executor.ExecuteAgents(ctx, subtasks, func(ctx context.Context, st *models.SubTask) models.SearchResult {
		return o.specialist.SearchForSubtask(ctx, st, pageSize, maxCommands)
	})
	result.Metrics.SearchTime = time.Since(searchStart)
	result.Metrics.EstimatedCost += float64(len(searchResults)) * costPerAgentSearch

	for _, sr := range searchResults {
		if sr.Success {
			result.Metrics.TotalCommandsFound += len(sr.Commands)
		} else {
			// Individual search failures are recoverable; they become
			// warnings unless the aggregate failure rate is excessive.
			result.Warnings = append(result.Warnings, fmt.Sprintf("subtask %d search failed: %s", sr.SubTaskID, sr.ErrorMessage))
		}
	}

	if ShouldAbortDueToFailures(searchResults) {
		msg := fmt.Sprintf("aborting: more than half of %d subtask searches failed", len(searchResults))
		o.log.Errorf("run %s: %s", result.RunID, msg)
		result.Errors = append(result.Errors, msg)
		return result
	}

	// Aggregate successful results by subtask id. Search results arrive in
	// completion order, so they are keyed, never indexed positionally.
	commandsBySubtask := make(map[int][]models.CommandMatch, len(searchResults))
	for _, sr := range searchResults {
		if sr.Success {
			commandsBySubtask[sr.SubTaskID] = sr.Commands
		}
	}

	// Phase 3: assembly.
	assemblyStart := time.Now()
	assemblyCtx, cancelAssembly := phaseContext(ctx, o.cfg.Timeouts.Assembly)
	assembly := o.assembler.AssembleScript(assemblyCtx, userRequest, subtasks, commandsBySubtask)
	cancelAssembly()
	result.Metrics.AssemblyTime = time.Since(assemblyStart)
	if len(subtasks) > 1 {
		result.Metrics.EstimatedCost += costPerAssembly
	}

	result.Warnings = append(result.Warnings, assembly.Warnings...)

	if !assembly.Success {
		result.Errors = append(result.Errors, assembly.ErrorMessage)
		return result
	}

	result.Script = assembly.Script
	result.Success = true
	o.log.Infof("run %s: assembled script with %d commands in %s", result.RunID, result.Metrics.TotalCommandsFound, time.Since(start))
	return result
}
