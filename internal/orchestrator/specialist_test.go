package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tgoodwin/scribe/internal/logging"
	"github.com/tgoodwin/scribe/pkg/models"
)

// searcherFunc adapts a function to the docsearch.Searcher interface.
type searcherFunc func(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error)

func (f searcherFunc) Search(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error) {
	return f(ctx, query, pageSize)
}

func matchesNamed(names ...string) []models.CommandMatch {
	out := make([]models.CommandMatch, len(names))
	for i, n := range names {
		out[i] = models.CommandMatch{Name: n, Score: 1.0 - float64(i)*0.1}
	}
	return out
}

func TestSpecialistAgent_Success(t *testing.T) {
	var gotQuery string
	searcher := searcherFunc(func(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error) {
		gotQuery = query
		return matchesNamed("CreateArray", "ArrayNew"), nil
	})

	agent := NewSpecialistAgent(searcher, time.Second, logging.Discard())
	st := &models.SubTask{ID: 1, Description: "create an array", Status: models.SubTaskStatusPending}

	result := agent.SearchForSubtask(context.Background(), st, 5, 5)

	if !result.Success {
		t.Fatalf("search failed: %s", result.ErrorMessage)
	}
	if result.SubTaskID != 1 {
		t.Errorf("SubTaskID = %d, want 1", result.SubTaskID)
	}
	if len(result.Commands) != 2 {
		t.Errorf("got %d commands, want 2", len(result.Commands))
	}
	if st.Status != models.SubTaskStatusCompleted {
		t.Errorf("status = %q, want completed", st.Status)
	}
	if result.ExecutionTime <= 0 {
		t.Error("execution time should be recorded")
	}
	// The query is the bare subtask description, never the full request.
	if gotQuery != "create an array" {
		t.Errorf("query = %q, want the subtask description", gotQuery)
	}
}

func TestSpecialistAgent_CapsCommandCount(t *testing.T) {
	searcher := searcherFunc(func(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error) {
		return matchesNamed("A", "B", "C", "D", "E"), nil
	})

	agent := NewSpecialistAgent(searcher, time.Second, logging.Discard())
	st := &models.SubTask{ID: 1, Description: "anything"}

	result := agent.SearchForSubtask(context.Background(), st, 3, 3)
	if len(result.Commands) != 3 {
		t.Errorf("got %d commands, want capped at 3", len(result.Commands))
	}
}

func TestSpecialistAgent_PageSizeAndCapAreIndependent(t *testing.T) {
	// The service is asked for pageSize matches; the agent keeps at most
	// maxCommands of them.
	var gotPageSize int
	searcher := searcherFunc(func(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error) {
		gotPageSize = pageSize
		return matchesNamed("A", "B", "C", "D", "E"), nil
	})

	agent := NewSpecialistAgent(searcher, time.Second, logging.Discard())
	st := &models.SubTask{ID: 1, Description: "anything"}

	result := agent.SearchForSubtask(context.Background(), st, 5, 3)
	if gotPageSize != 5 {
		t.Errorf("service asked for pageSize %d, want 5", gotPageSize)
	}
	if len(result.Commands) != 3 {
		t.Errorf("got %d commands, want capped at 3", len(result.Commands))
	}
}

func TestSpecialistAgent_ZeroPageSizeFallsBackToCap(t *testing.T) {
	var gotPageSize int
	searcher := searcherFunc(func(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error) {
		gotPageSize = pageSize
		return nil, nil
	})

	agent := NewSpecialistAgent(searcher, time.Second, logging.Discard())
	st := &models.SubTask{ID: 1, Description: "anything"}

	agent.SearchForSubtask(context.Background(), st, 0, 4)
	if gotPageSize != 4 {
		t.Errorf("service asked for pageSize %d, want the command cap 4", gotPageSize)
	}
}

func TestSpecialistAgent_Timeout(t *testing.T) {
	searcher := searcherFunc(func(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error) {
		select {
		case <-time.After(5 * time.Second):
			return matchesNamed("TooLate"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	agent := NewSpecialistAgent(searcher, 20*time.Millisecond, logging.Discard())
	st := &models.SubTask{ID: 7, Description: "slow lookup"}

	result := agent.SearchForSubtask(context.Background(), st, 5, 5)

	if result.Success {
		t.Fatal("expected timeout failure")
	}
	if !strings.Contains(result.ErrorMessage, "timed out") {
		t.Errorf("error message %q should mention timeout", result.ErrorMessage)
	}
	if st.Status != models.SubTaskStatusFailed {
		t.Errorf("status = %q, want failed", st.Status)
	}
}

func TestSpecialistAgent_SearcherError(t *testing.T) {
	searcher := searcherFunc(func(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error) {
		return nil, errors.New("connection refused")
	})

	agent := NewSpecialistAgent(searcher, time.Second, logging.Discard())
	st := &models.SubTask{ID: 2, Description: "anything"}

	result := agent.SearchForSubtask(context.Background(), st, 5, 5)

	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.ErrorMessage, "connection refused") {
		t.Errorf("error message %q should carry the searcher error", result.ErrorMessage)
	}
	if st.Status != models.SubTaskStatusFailed {
		t.Errorf("status = %q, want failed", st.Status)
	}
}

func TestSpecialistAgent_SearcherPanic(t *testing.T) {
	searcher := searcherFunc(func(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error) {
		panic("index out of range")
	})

	agent := NewSpecialistAgent(searcher, time.Second, logging.Discard())
	st := &models.SubTask{ID: 3, Description: "anything"}

	result := agent.SearchForSubtask(context.Background(), st, 5, 5)

	if result.Success {
		t.Fatal("expected failure from panic")
	}
	if !strings.Contains(result.ErrorMessage, "index out of range") {
		t.Errorf("error message %q should capture the panic text", result.ErrorMessage)
	}
	if st.Status != models.SubTaskStatusFailed {
		t.Errorf("status = %q, want failed", st.Status)
	}
}

func TestSpecialistAgent_EmptyResultsStillSucceed(t *testing.T) {
	// Zero matches is a successful search; gaps are the assembler's concern.
	searcher := searcherFunc(func(ctx context.Context, query string, pageSize int) ([]models.CommandMatch, error) {
		return nil, nil
	})

	agent := NewSpecialistAgent(searcher, time.Second, logging.Discard())
	st := &models.SubTask{ID: 4, Description: "obscure operation"}

	result := agent.SearchForSubtask(context.Background(), st, 5, 5)
	if !result.Success {
		t.Fatalf("empty results should succeed, got %s", result.ErrorMessage)
	}
	if len(result.Commands) != 0 {
		t.Errorf("got %d commands, want 0", len(result.Commands))
	}
	if st.Status != models.SubTaskStatusCompleted {
		t.Errorf("status = %q, want completed", st.Status)
	}
}
