package models

import "testing"

func TestSubTaskStatus_Valid(t *testing.T) {
	valid := []SubTaskStatus{
		SubTaskStatusPending,
		SubTaskStatusInProgress,
		SubTaskStatusCompleted,
		SubTaskStatusFailed,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}

	invalid := []SubTaskStatus{"", "done", "PENDING", "cancelled"}
	for _, s := range invalid {
		if s.Valid() {
			t.Errorf("status %q should be invalid", s)
		}
	}
}

func TestSubTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		status SubTaskStatus
		want   bool
	}{
		{SubTaskStatusPending, false},
		{SubTaskStatusInProgress, false},
		{SubTaskStatusCompleted, true},
		{SubTaskStatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Terminal(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
