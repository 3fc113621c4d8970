// Package orchestrator implements the multi-agent pipeline that turns a
// natural-language request into an executable script: decomposition into
// subtasks, bounded-concurrency documentation search, and script assembly.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/tgoodwin/scribe/internal/llm"
	"github.com/tgoodwin/scribe/internal/logging"
	"github.com/tgoodwin/scribe/pkg/models"
)

// decompositionPrompt is the prompt template for task decomposition.
const decompositionPrompt = `Break this user request into atomic subtasks for a documentation search pipeline. Each subtask should describe one operation that can be looked up in command documentation.

User request:
%s

Return ONLY a JSON object with this exact structure (no other text):
{
  "subtasks": [
    {
      "id": 1,
      "description": "Short description of the operation",
      "depends_on": []
    }
  ]
}

Guidelines:
- Return exactly one subtask for simple requests
- Return multiple subtasks with dependency edges for compound requests
- Number subtasks starting from 1
- depends_on lists the ids of subtasks that must complete first; use [] when there are none
- Subtasks should be as independent as possible to allow parallel lookup`

// decomposedSubTask is the JSON structure returned by the model for one subtask.
type decomposedSubTask struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	DependsOn   []int  `json:"depends_on"`
}

// decompositionEnvelope is the JSON object wrapping the subtask list.
type decompositionEnvelope struct {
	SubTasks []decomposedSubTask `json:"subtasks"`
}

// Decomposer breaks down user requests into subtasks with a dependency graph.
type Decomposer struct {
	completer llm.Completer
	log       *logging.Logger
}

// NewDecomposer creates a Decomposer using the given completion capability.
func NewDecomposer(completer llm.Completer, log *logging.Logger) *Decomposer {
	if log == nil {
		log = logging.Discard()
	}
	return &Decomposer{completer: completer, log: log}
}

// Decompose issues exactly one LLM call to split the request into N>=1
// subtasks. It never returns an error: all failures surface through
// Success=false and ErrorMessage on the result.
func (d *Decomposer) Decompose(ctx context.Context, userRequest string) *models.DecompositionResult {
	prompt := fmt.Sprintf(decompositionPrompt, userRequest)

	response, err := d.completer.Complete(ctx, prompt)
	if err != nil {
		return &models.DecompositionResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("decomposition call failed: %v", err),
		}
	}

	subtasks, err := parseDecompositionResponse(response)
	if err != nil {
		return &models.DecompositionResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("parse decomposition response: %v", err),
		}
	}

	if len(subtasks) == 0 {
		return &models.DecompositionResult{
			Success:      false,
			ErrorMessage: "no subtasks found in decomposition response",
		}
	}

	// Advisory validation only: unknown references and cycles are logged,
	// never rejected.
	d.validateReferences(subtasks)
	d.validateNoCycles(subtasks)

	dependencies := make(map[int][]int, len(subtasks))
	for _, st := range subtasks {
		dependencies[st.ID] = append([]int(nil), st.DependsOn...)
	}

	return &models.DecompositionResult{
		SubTasks:     subtasks,
		Dependencies: dependencies,
		Success:      true,
	}
}

// parseDecompositionResponse extracts and parses the JSON object from the raw
// model output. The model may wrap the JSON in prose or markdown fences, so
// parsing is tolerant: it takes the substring from the first '{' to the last
// '}' and, when plain unmarshaling fails, attempts a jsonrepair pass before
// giving up.
func parseDecompositionResponse(response string) ([]*models.SubTask, error) {
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	jsonStr := response[jsonStart : jsonEnd+1]

	var envelope decompositionEnvelope
	if err := json.Unmarshal([]byte(jsonStr), &envelope); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(jsonStr)
		if repairErr != nil {
			return nil, fmt.Errorf("unmarshal JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &envelope); err != nil {
			return nil, fmt.Errorf("unmarshal repaired JSON: %w", err)
		}
	}

	subtasks := make([]*models.SubTask, len(envelope.SubTasks))
	for i, dst := range envelope.SubTasks {
		id := dst.ID
		if id <= 0 {
			// Some models omit ids; fall back to 1-based position.
			id = i + 1
		}
		subtasks[i] = &models.SubTask{
			ID:          id,
			Description: dst.Description,
			DependsOn:   dst.DependsOn,
			Status:      models.SubTaskStatusPending,
		}
	}

	return subtasks, nil
}

// validateReferences logs a warning for every depends_on id that does not
// exist in the decomposition.
func (d *Decomposer) validateReferences(subtasks []*models.SubTask) {
	known := make(map[int]bool, len(subtasks))
	for _, st := range subtasks {
		known[st.ID] = true
	}

	for _, st := range subtasks {
		for _, dep := range st.DependsOn {
			if !known[dep] {
				d.log.Warnf("subtask %d depends on unknown subtask %d", st.ID, dep)
			}
		}
	}
}

// validateNoCycles walks depends_on edges depth-first from every subtask and
// logs a warning when a node reappears on the current path. The visited set
// is per-path so sibling branches sharing a dependency are not flagged.
// A detected cycle never aborts the decomposition.
func (d *Decomposer) validateNoCycles(subtasks []*models.SubTask) {
	byID := make(map[int]*models.SubTask, len(subtasks))
	for _, st := range subtasks {
		byID[st.ID] = st
	}

	var walk func(id int, onPath map[int]bool, path []int) bool
	walk = func(id int, onPath map[int]bool, path []int) bool {
		if onPath[id] {
			cycle := append(append([]int(nil), path...), id)
			parts := make([]string, len(cycle))
			for i, n := range cycle {
				parts[i] = fmt.Sprintf("%d", n)
			}
			d.log.Warnf("circular dependency detected: %s", strings.Join(parts, " -> "))
			return true
		}

		st := byID[id]
		if st == nil {
			return false
		}

		onPath[id] = true
		for _, dep := range st.DependsOn {
			if walk(dep, onPath, append(path, id)) {
				delete(onPath, id)
				return true
			}
		}
		delete(onPath, id)
		return false
	}

	for _, st := range subtasks {
		if walk(st.ID, make(map[int]bool), nil) {
			return
		}
	}
}
