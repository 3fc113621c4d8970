package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/tgoodwin/scribe/internal/llm"
	"github.com/tgoodwin/scribe/internal/logging"
	"github.com/tgoodwin/scribe/pkg/models"
)

// assemblyPrompt is the prompt template for weaving multiple subtasks'
// commands into one script.
const assemblyPrompt = `Write one executable script that fulfills this user request by combining the commands retrieved for each subtask.

User request:
%s

Subtasks and their available commands:
%s

Requirements:
- Respect the dependency order between subtasks
- Ensure variables flow correctly between steps
- Include error handling
- Comment each major step
- Return ONLY the script code, no prose or explanation`

// Assembler combines per-subtask command matches into one final script.
type Assembler struct {
	completer llm.Completer
	log       *logging.Logger
}

// NewAssembler creates an Assembler using the given completion capability.
func NewAssembler(completer llm.Completer, log *logging.Logger) *Assembler {
	if log == nil {
		log = logging.Discard()
	}
	return &Assembler{completer: completer, log: log}
}

// AssembleScript produces the final script. A single subtask is formatted
// directly with no LLM call; multiple subtasks are woven together with
// exactly one LLM call. Failures never escape as panics: they surface
// through Success=false on the result.
func (a *Assembler) AssembleScript(ctx context.Context, userRequest string, subtasks []*models.SubTask, commandsBySubtask map[int][]models.CommandMatch) (result models.AssemblyResult) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Errorf("assembly panicked: %v", r)
			result = models.AssemblyResult{
				Success:      false,
				ErrorMessage: fmt.Sprintf("assembly panicked: %v", r),
			}
		}
	}()

	if len(subtasks) == 0 {
		return models.AssemblyResult{
			Success:      false,
			ErrorMessage: "no subtasks to assemble",
		}
	}

	if len(subtasks) == 1 {
		return a.assembleTrivial(subtasks[0], commandsBySubtask[subtasks[0].ID])
	}

	return a.assembleWithModel(ctx, userRequest, subtasks, commandsBySubtask)
}

// assembleTrivial formats a single subtask's commands without any LLM call.
// Each command becomes a comment line with its description followed by its
// syntax, or a bare call when no syntax is documented.
func (a *Assembler) assembleTrivial(st *models.SubTask, commands []models.CommandMatch) models.AssemblyResult {
	if len(commands) == 0 {
		return models.AssemblyResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("no commands found for subtask %d", st.ID),
		}
	}

	blocks := make([]string, 0, len(commands))
	for _, cmd := range commands {
		var b strings.Builder
		if cmd.Description != "" {
			b.WriteString("# " + cmd.Description + "\n")
		}
		if cmd.Syntax != "" {
			b.WriteString(cmd.Syntax)
		} else {
			b.WriteString(cmd.Name + "()")
		}
		blocks = append(blocks, b.String())
	}

	return models.AssemblyResult{
		Script:  strings.Join(blocks, "\n\n"),
		Success: true,
	}
}

// assembleWithModel issues one LLM call with the full dependency-annotated
// subtask listing and strips any markdown fencing from the reply.
func (a *Assembler) assembleWithModel(ctx context.Context, userRequest string, subtasks []*models.SubTask, commandsBySubtask map[int][]models.CommandMatch) models.AssemblyResult {
	var warnings []string

	var listing strings.Builder
	for _, st := range subtasks {
		fmt.Fprintf(&listing, "Subtask %d: %s\n", st.ID, st.Description)
		if len(st.DependsOn) > 0 {
			deps := make([]string, len(st.DependsOn))
			for i, d := range st.DependsOn {
				deps[i] = fmt.Sprintf("%d", d)
			}
			fmt.Fprintf(&listing, "  Depends on: %s\n", strings.Join(deps, ", "))
		}

		commands := commandsBySubtask[st.ID]
		if len(commands) == 0 {
			listing.WriteString("  WARNING: no commands were found for this subtask\n")
			warnings = append(warnings, fmt.Sprintf("subtask %d had no commands", st.ID))
		}
		for _, cmd := range commands {
			fmt.Fprintf(&listing, "  Command: %s\n", cmd.Name)
			if cmd.Description != "" {
				fmt.Fprintf(&listing, "    Description: %s\n", cmd.Description)
			}
			if cmd.Syntax != "" {
				fmt.Fprintf(&listing, "    Syntax: %s\n", cmd.Syntax)
			}
			if cmd.Parameters != "" {
				fmt.Fprintf(&listing, "    Parameters: %s\n", cmd.Parameters)
			}
		}
		listing.WriteString("\n")
	}

	prompt := fmt.Sprintf(assemblyPrompt, userRequest, listing.String())

	response, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return models.AssemblyResult{
			Success:      false,
			ErrorMessage: fmt.Sprintf("assembly call failed: %v", err),
			Warnings:     warnings,
		}
	}

	script := extractScript(response)
	if strings.TrimSpace(script) == "" {
		warnings = append(warnings, "assembled script is empty")
	}

	return models.AssemblyResult{
		Script:   script,
		Success:  true,
		Warnings: warnings,
	}
}

// extractScript strips markdown code-fence wrapping from a model response.
// It locates the first triple-backtick fence, skips the rest of that line
// (the optional language tag), and extracts everything up to the next fence.
// Responses without fences are returned trimmed.
func extractScript(response string) string {
	first := strings.Index(response, "```")
	if first == -1 {
		return strings.TrimSpace(response)
	}

	rest := response[first+3:]
	if nl := strings.Index(rest, "\n"); nl != -1 {
		rest = rest[nl+1:]
	}

	if closing := strings.Index(rest, "```"); closing != -1 {
		rest = rest[:closing]
	}

	return strings.TrimSpace(rest)
}
