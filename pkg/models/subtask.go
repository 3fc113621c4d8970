// Package models defines the data entities shared across the orchestration
// pipeline. Types here carry no behavior beyond simple accessors; each is
// produced by exactly one component and treated as immutable afterwards,
// except for SubTask.Status which is owned by the single in-flight agent
// processing the subtask.
package models

import "time"

// SubTaskStatus represents the current state of a subtask.
type SubTaskStatus string

const (
	// SubTaskStatusPending indicates the subtask has not been picked up yet.
	SubTaskStatusPending SubTaskStatus = "pending"
	// SubTaskStatusInProgress indicates a specialist agent is working on the subtask.
	SubTaskStatusInProgress SubTaskStatus = "in_progress"
	// SubTaskStatusCompleted indicates the subtask's search finished successfully.
	SubTaskStatusCompleted SubTaskStatus = "completed"
	// SubTaskStatusFailed indicates the subtask's search failed.
	SubTaskStatusFailed SubTaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s SubTaskStatus) Valid() bool {
	switch s {
	case SubTaskStatusPending, SubTaskStatusInProgress, SubTaskStatusCompleted, SubTaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true once the status can no longer change.
func (s SubTaskStatus) Terminal() bool {
	return s == SubTaskStatusCompleted || s == SubTaskStatusFailed
}

// SubTask is one atomic unit of a decomposed user request.
type SubTask struct {
	// ID is a positive integer unique within one decomposition, assigned 1-based.
	ID int `json:"id"`
	// Description is the natural-language statement of the unit of work.
	Description string `json:"description"`
	// DependsOn lists subtask IDs that must complete before this one is resolvable.
	DependsOn []int `json:"depends_on,omitempty"`
	// Status is the current state. Written only by the agent that owns the subtask.
	Status SubTaskStatus `json:"status"`
}

// DecompositionResult is the output of splitting a request into subtasks.
// Immutable after creation.
type DecompositionResult struct {
	// SubTasks is the ordered sequence produced by the decomposer.
	SubTasks []*SubTask `json:"subtasks"`
	// Dependencies maps subtask ID to its prerequisite IDs. Redundant with
	// SubTask.DependsOn but kept as a fast-lookup map for consumers.
	Dependencies map[int][]int `json:"dependencies,omitempty"`
	// Success reports whether decomposition produced a usable subtask list.
	Success bool `json:"success"`
	// ErrorMessage describes the failure when Success is false.
	ErrorMessage string `json:"error_message,omitempty"`
}

// CommandMatch is a single retrieved documentation entry describing a
// callable command. Read-only once received from the search service.
type CommandMatch struct {
	Name        string  `json:"name"`
	Syntax      string  `json:"syntax,omitempty"`
	Parameters  string  `json:"parameters,omitempty"`
	Description string  `json:"description,omitempty"`
	SourceFile  string  `json:"source_file,omitempty"`
	LicenseTier string  `json:"license_tier,omitempty"`
	Category    string  `json:"category,omitempty"`
	PluginName  string  `json:"plugin_name,omitempty"`
	Score       float64 `json:"score"`
}

// SearchResult is the outcome of one specialist agent invocation.
type SearchResult struct {
	// SubTaskID identifies which subtask this result belongs to. Consumers
	// must key on this field, never on list position.
	SubTaskID int `json:"subtask_id"`
	// Commands holds the retrieved matches, best first. May be empty.
	Commands []CommandMatch `json:"commands,omitempty"`
	// Success reports whether the search completed without error.
	Success bool `json:"success"`
	// ErrorMessage describes the failure when Success is false.
	ErrorMessage string `json:"error_message,omitempty"`
	// ExecutionTime is the wall-clock duration of the search.
	ExecutionTime time.Duration `json:"execution_time"`
}

// AssemblyResult is the outcome of weaving subtask commands into one script.
type AssemblyResult struct {
	Script       string   `json:"script"`
	Success      bool     `json:"success"`
	ErrorMessage string   `json:"error_message,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// OrchestrationMetrics captures per-phase timing and derived cost for one run.
// Populated regardless of success so failed runs still carry diagnostics.
type OrchestrationMetrics struct {
	SubTaskCount       int           `json:"subtask_count"`
	TotalCommandsFound int           `json:"total_commands_found"`
	DecompositionTime  time.Duration `json:"decomposition_time"`
	SearchTime         time.Duration `json:"search_time"`
	AssemblyTime       time.Duration `json:"assembly_time"`
	TotalTime          time.Duration `json:"total_time"`
	// EstimatedCost is the approximate USD cost of the run.
	EstimatedCost float64 `json:"estimated_cost"`
}

// OrchestrationResult is the top-level output returned to the caller.
type OrchestrationResult struct {
	// RunID uniquely identifies this orchestration run.
	RunID string `json:"run_id"`
	// Request is the original user request.
	Request string `json:"request"`
	// Script is the assembled script, empty on failure.
	Script  string               `json:"script"`
	Success bool                 `json:"success"`
	Metrics OrchestrationMetrics `json:"metrics"`
	// Errors holds fatal problems that stopped the pipeline.
	Errors []string `json:"errors,omitempty"`
	// Warnings holds recoverable problems, e.g. a single failed subtask search.
	Warnings []string `json:"warnings,omitempty"`
	// CreatedAt is when the run started.
	CreatedAt time.Time `json:"created_at"`
}
