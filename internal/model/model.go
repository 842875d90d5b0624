package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending Status = "pendente"
	StatusDone    Status = "concluida"
	StatusAny     Status = "todas"
)

// Toggle flips pending and done. Anything unknown is treated as pending.
func (s Status) Toggle() Status {
	if s == StatusPending {
		return StatusDone
	}
	if s == StatusDone {
		return StatusPending
	}
	return StatusDone
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusDone
}

type Priority string

const (
	PriorityLow    Priority = "baixa"
	PriorityMedium Priority = "media"
	PriorityHigh   Priority = "alta"
	PriorityAny    Priority = "todas"
)

// Rank orders priorities for sorting; unknown values rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

type SortCriterion string

const (
	SortNewest   SortCriterion = "criacao-recente"
	SortOldest   SortCriterion = "criacao-antiga"
	SortPriority SortCriterion = "prioridade-alta"
	SortDueDate  SortCriterion = "vencimento-proximo"
)

var SortCriteria = []SortCriterion{SortNewest, SortOldest, SortPriority, SortDueDate}

// TagAny disables the tag filter.
const TagAny = "todas"

const DateLayout = "2006-01-02"

// TimestampLayout keeps a fixed width so string order equals time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

type Subtask struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	Tags        []string  `json:"tags"`
	CreatedAt   string    `json:"createdAt"`
	DueDate     string    `json:"dueDate,omitempty"`
	Subtasks    []Subtask `json:"subtasks"`
}

func (t Task) HasDueDate() bool {
	return t.DueDate != ""
}

func (t Task) HasTag(name string) bool {
	for _, tag := range t.Tags {
		if tag == name {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with t.
func (t Task) Clone() Task {
	clone := t
	clone.Tags = append(make([]string, 0, len(t.Tags)), t.Tags...)
	clone.Subtasks = append(make([]Subtask, 0, len(t.Subtasks)), t.Subtasks...)
	return clone
}

func CloneTasks(tasks []Task) []Task {
	result := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, task.Clone())
	}
	return result
}

// NewTask is the payload for creating a task.
type NewTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"dueDate,omitempty"`
}

// TaskPatch holds a partial update. Nil fields are left unchanged; a
// DueDate pointing at "" clears the due date.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Subtasks    []Subtask `json:"subtasks,omitempty"`
}

// Apply merges the patch into a copy of task.
func (p TaskPatch) Apply(task Task) Task {
	updated := task.Clone()
	if p.Title != nil {
		updated.Title = *p.Title
	}
	if p.Description != nil {
		updated.Description = *p.Description
	}
	if p.Status != nil {
		updated.Status = *p.Status
	}
	if p.Priority != nil {
		updated.Priority = *p.Priority
	}
	if p.Tags != nil {
		updated.Tags = NormalizeTags(p.Tags)
	}
	if p.DueDate != nil {
		updated.DueDate = strings.TrimSpace(*p.DueDate)
	}
	if p.Subtasks != nil {
		updated.Subtasks = append(make([]Subtask, 0, len(p.Subtasks)), p.Subtasks...)
	}
	return updated
}

type Filter struct {
	Search   string   `json:"search"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`
	Tag      string   `json:"tag"`
}

func DefaultFilter() Filter {
	return Filter{Status: StatusAny, Priority: PriorityAny, Tag: TagAny}
}

func (f Filter) StatusActive() bool {
	return f.Status != "" && f.Status != StatusAny
}

func (f Filter) PriorityActive() bool {
	return f.Priority != "" && f.Priority != PriorityAny
}

func (f Filter) TagActive() bool {
	return f.Tag != "" && f.Tag != TagAny
}

// NormalizeTags trims names, drops empties and removes exact duplicates
// keeping the first occurrence.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
