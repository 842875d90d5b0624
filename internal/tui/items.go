package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

type tagCountEntry struct {
	Name    string
	Count   int
	Defined bool
}

var (
	statusFilterOrder   = []model.Status{model.StatusAny, model.StatusPending, model.StatusDone}
	priorityFilterOrder = []model.Priority{model.PriorityAny, model.PriorityHigh, model.PriorityMedium, model.PriorityLow}
	priorityOrder       = []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh}
)

func statusLabel(status model.Status) string {
	switch status {
	case model.StatusPending:
		return "pending"
	case model.StatusDone:
		return "done"
	default:
		return "any"
	}
}

func priorityLabel(priority model.Priority) string {
	switch priority {
	case model.PriorityLow:
		return "low"
	case model.PriorityMedium:
		return "medium"
	case model.PriorityHigh:
		return "high"
	default:
		return "any"
	}
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "no tags"
	}
	return strings.Join(tags, ",")
}

func formatTaskSummary(task model.Task) string {
	summary := fmt.Sprintf("%s | %s | %s", task.Title, priorityLabel(task.Priority), formatTags(task.Tags))
	if task.HasDueDate() {
		summary += " | due " + task.DueDate
	}
	if total := len(task.Subtasks); total > 0 {
		summary += fmt.Sprintf(" | %d/%d", doneSubtasks(task), total)
	}
	return summary
}

func doneSubtasks(task model.Task) int {
	count := 0
	for _, subtask := range task.Subtasks {
		if subtask.Status == model.StatusDone {
			count++
		}
	}
	return count
}

// buildTagEntries lists every known tag with the number of tasks carrying
// it, most used first.
func buildTagEntries(names, defined []string, tasks []model.Task) []tagCountEntry {
	counts := make(map[string]int)
	for _, task := range tasks {
		for _, tag := range task.Tags {
			counts[tag]++
		}
	}
	catalog := make(map[string]struct{}, len(defined))
	for _, name := range defined {
		catalog[name] = struct{}{}
	}

	entries := make([]tagCountEntry, 0, len(names))
	for _, name := range names {
		_, ok := catalog[name]
		entries = append(entries, tagCountEntry{Name: name, Count: counts[name], Defined: ok})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Count == entries[j].Count {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Count > entries[j].Count
	})
	return entries
}

func splitByStatus(tasks []model.Task) ([]model.Task, []model.Task) {
	pending := make([]model.Task, 0, len(tasks))
	done := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == model.StatusDone {
			done = append(done, task)
			continue
		}
		pending = append(pending, task)
	}
	return pending, done
}

func cycle[T comparable](order []T, current T, delta int) T {
	index := 0
	for i, value := range order {
		if value == current {
			index = i
			break
		}
	}
	index = (index + delta + len(order)) % len(order)
	return order[index]
}
