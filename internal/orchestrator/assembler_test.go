package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tgoodwin/scribe/internal/logging"
	"github.com/tgoodwin/scribe/pkg/models"
)

func TestAssembleScript_TrivialPath(t *testing.T) {
	// P9: one subtask with two commands is formatted without any LLM call.
	completer := &fakeCompleter{response: "should never be used"}
	a := NewAssembler(completer, logging.Discard())

	subtasks := []*models.SubTask{{ID: 1, Description: "create an array"}}
	commands := map[int][]models.CommandMatch{
		1: {
			{Name: "CreateArray", Description: "Creates a new array", Syntax: "CreateArray(10)"},
			{Name: "ArrayFill", Description: "Fills an array with a value"},
		},
	}

	result := a.AssembleScript(context.Background(), "Create an array", subtasks, commands)

	if !result.Success {
		t.Fatalf("assembly failed: %s", result.ErrorMessage)
	}
	if completer.callCount() != 0 {
		t.Errorf("completer called %d times, want 0 on the trivial path", completer.callCount())
	}
	for _, want := range []string{"Creates a new array", "CreateArray(10)", "Fills an array with a value", "ArrayFill()"} {
		if !strings.Contains(result.Script, want) {
			t.Errorf("script missing %q:\n%s", want, result.Script)
		}
	}
}

func TestAssembleScript_TrivialPathNoCommands(t *testing.T) {
	completer := &fakeCompleter{}
	a := NewAssembler(completer, logging.Discard())

	subtasks := []*models.SubTask{{ID: 1, Description: "obscure operation"}}

	result := a.AssembleScript(context.Background(), "do something obscure", subtasks, map[int][]models.CommandMatch{})
	if result.Success {
		t.Fatal("expected failure when the single subtask has no commands")
	}
}

func TestAssembleScript_ComplexPath(t *testing.T) {
	completer := &fakeCompleter{response: "```lua\nlocal list = CreateList()\nSortList(list)\nSaveFile(list)\n```"}
	a := NewAssembler(completer, logging.Discard())

	subtasks := []*models.SubTask{
		{ID: 1, Description: "Create a list"},
		{ID: 2, Description: "Sort the list", DependsOn: []int{1}},
		{ID: 3, Description: "Save to file", DependsOn: []int{2}},
	}
	commands := map[int][]models.CommandMatch{
		1: {{Name: "CreateList", Syntax: "CreateList()", Parameters: "none"}},
		2: {{Name: "SortList", Syntax: "SortList(list)"}},
		3: {{Name: "SaveFile", Syntax: "SaveFile(data)"}},
	}

	result := a.AssembleScript(context.Background(), "Create a list, sort it, and save to file", subtasks, commands)

	if !result.Success {
		t.Fatalf("assembly failed: %s", result.ErrorMessage)
	}
	if completer.callCount() != 1 {
		t.Errorf("completer called %d times, want exactly 1", completer.callCount())
	}
	// P10: the fence markers and language tag are stripped.
	if strings.Contains(result.Script, "```") || strings.Contains(result.Script, "lua\n") {
		t.Errorf("script still carries fencing:\n%s", result.Script)
	}
	if !strings.Contains(result.Script, "SortList(list)") {
		t.Errorf("script missing expected content:\n%s", result.Script)
	}

	// The prompt embeds the request, every description, dependencies, and
	// command metadata.
	prompt := completer.prompts[0]
	for _, want := range []string{
		"Create a list, sort it, and save to file",
		"Subtask 2: Sort the list",
		"Depends on: 1",
		"Command: SaveFile",
		"Syntax: SortList(list)",
		"Parameters: none",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAssembleScript_FlagsSubtasksWithoutCommands(t *testing.T) {
	completer := &fakeCompleter{response: "result = DoFirst()"}
	a := NewAssembler(completer, logging.Discard())

	subtasks := []*models.SubTask{
		{ID: 1, Description: "First"},
		{ID: 2, Description: "Second", DependsOn: []int{1}},
	}
	commands := map[int][]models.CommandMatch{
		1: {{Name: "DoFirst"}},
	}

	result := a.AssembleScript(context.Background(), "do both", subtasks, commands)

	if !result.Success {
		t.Fatalf("assembly failed: %s", result.ErrorMessage)
	}
	if !strings.Contains(completer.prompts[0], "WARNING: no commands were found") {
		t.Error("prompt should flag the command-less subtask inline")
	}

	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "subtask 2 had no commands") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings should mention subtask 2, got %v", result.Warnings)
	}
}

func TestAssembleScript_CompleterError(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("model overloaded")}
	a := NewAssembler(completer, logging.Discard())

	subtasks := []*models.SubTask{
		{ID: 1, Description: "First"},
		{ID: 2, Description: "Second"},
	}

	result := a.AssembleScript(context.Background(), "do both", subtasks, map[int][]models.CommandMatch{})
	if result.Success {
		t.Fatal("expected failure when completer errors")
	}
	if !strings.Contains(result.ErrorMessage, "model overloaded") {
		t.Errorf("error message %q should carry the completer error", result.ErrorMessage)
	}
}

func TestAssembleScript_EmptyScriptIsWarning(t *testing.T) {
	completer := &fakeCompleter{response: "```\n\n```"}
	a := NewAssembler(completer, logging.Discard())

	subtasks := []*models.SubTask{
		{ID: 1, Description: "First"},
		{ID: 2, Description: "Second"},
	}
	commands := map[int][]models.CommandMatch{
		1: {{Name: "A"}},
		2: {{Name: "B"}},
	}

	result := a.AssembleScript(context.Background(), "do both", subtasks, commands)

	if !result.Success {
		t.Fatalf("empty script is a warning, not a failure: %s", result.ErrorMessage)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "empty") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings should mention the empty script, got %v", result.Warnings)
	}
}

func TestAssembleScript_NoSubtasks(t *testing.T) {
	a := NewAssembler(&fakeCompleter{}, logging.Discard())

	result := a.AssembleScript(context.Background(), "anything", nil, nil)
	if result.Success {
		t.Fatal("expected failure for zero subtasks")
	}
}

func TestExtractScript(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "no fences",
			response: "  x = 1\ny = 2  \n",
			want:     "x = 1\ny = 2",
		},
		{
			name:     "fenced with language tag",
			response: "```python\nx = 1\n```",
			want:     "x = 1",
		},
		{
			name:     "fenced without language tag",
			response: "```\nx = 1\n```",
			want:     "x = 1",
		},
		{
			name:     "prose before and after fence",
			response: "Here is your script:\n```lua\nprint(1)\n```\nHope it helps!",
			want:     "print(1)",
		},
		{
			name:     "unterminated fence",
			response: "```\nx = 1\n",
			want:     "x = 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractScript(tt.response); got != tt.want {
				t.Errorf("extractScript = %q, want %q", got, tt.want)
			}
		})
	}
}
