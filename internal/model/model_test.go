package model

import (
	"errors"
	"testing"
)

func TestNewTaskValidate(t *testing.T) {
	cases := []struct {
		name    string
		input   NewTask
		wantErr bool
	}{
		{name: "ok", input: NewTask{Title: "A", Description: "d"}},
		{name: "missing title", input: NewTask{Title: "  ", Description: "d"}, wantErr: true},
		{name: "missing description", input: NewTask{Title: "A"}, wantErr: true},
		{name: "bad priority", input: NewTask{Title: "A", Description: "d", Priority: "urgent"}, wantErr: true},
		{name: "bad due", input: NewTask{Title: "A", Description: "d", DueDate: "31/12/2025"}, wantErr: true},
		{name: "good due", input: NewTask{Title: "A", Description: "d", DueDate: "2025-12-31"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := tc.input
			err := input.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if input.Priority != PriorityMedium {
				t.Fatalf("expected default priority %q, got %q", PriorityMedium, input.Priority)
			}
		})
	}
}

func TestTaskPatchApplyLeavesOriginalUntouched(t *testing.T) {
	original := Task{ID: "1", Title: "old", Tags: []string{"a"}, DueDate: "2025-01-01"}
	title := "new"
	empty := ""
	updated := TaskPatch{Title: &title, Tags: []string{"b", "b", " c "}, DueDate: &empty}.Apply(original)

	if updated.Title != "new" || updated.HasDueDate() {
		t.Fatalf("unexpected patch result: %+v", updated)
	}
	if len(updated.Tags) != 2 || updated.Tags[0] != "b" || updated.Tags[1] != "c" {
		t.Fatalf("expected normalized tags [b c], got %v", updated.Tags)
	}
	if original.Title != "old" || original.Tags[0] != "a" || original.DueDate != "2025-01-01" {
		t.Fatalf("original task was mutated: %+v", original)
	}
}

func TestStatusToggle(t *testing.T) {
	if StatusPending.Toggle() != StatusDone || StatusDone.Toggle() != StatusPending {
		t.Fatalf("toggle should flip pending and done")
	}
}
