package view

import (
	"sort"
	"strings"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

// Visible filters then sorts. The input slice is never modified.
func Visible(tasks []model.Task, filter model.Filter, criterion model.SortCriterion) []model.Task {
	return Sort(Filter(tasks, filter), criterion)
}

// Filter keeps the tasks matching every active criterion, preserving order.
func Filter(tasks []model.Task, filter model.Filter) []model.Task {
	search := strings.ToLower(filter.Search)
	result := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if filter.StatusActive() && task.Status != filter.Status {
			continue
		}
		if filter.PriorityActive() && task.Priority != filter.Priority {
			continue
		}
		if filter.TagActive() && !task.HasTag(filter.Tag) {
			continue
		}
		if search != "" && !matchesSearch(task, search) {
			continue
		}
		result = append(result, task)
	}
	return result
}

func matchesSearch(task model.Task, lowered string) bool {
	return strings.Contains(strings.ToLower(task.Title), lowered) ||
		strings.Contains(strings.ToLower(task.Description), lowered)
}

// Sort returns a stably sorted copy of tasks.
func Sort(tasks []model.Task, criterion model.SortCriterion) []model.Task {
	sorted := append(make([]model.Task, 0, len(tasks)), tasks...)
	less := lessFor(criterion)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j])
	})
	return sorted
}

func lessFor(criterion model.SortCriterion) func(a, b model.Task) bool {
	switch criterion {
	case model.SortOldest:
		return func(a, b model.Task) bool { return a.CreatedAt < b.CreatedAt }
	case model.SortPriority:
		return func(a, b model.Task) bool { return a.Priority.Rank() > b.Priority.Rank() }
	case model.SortDueDate:
		return lessByDueDate
	default:
		return func(a, b model.Task) bool { return a.CreatedAt > b.CreatedAt }
	}
}

// Undated tasks sort after every dated one.
func lessByDueDate(a, b model.Task) bool {
	if !a.HasDueDate() {
		return false
	}
	if !b.HasDueDate() {
		return true
	}
	return a.DueDate < b.DueDate
}

// NextSort cycles through the known criteria.
func NextSort(current model.SortCriterion) model.SortCriterion {
	for i, criterion := range model.SortCriteria {
		if criterion == current {
			return model.SortCriteria[(i+1)%len(model.SortCriteria)]
		}
	}
	return model.SortNewest
}

func SortLabel(criterion model.SortCriterion) string {
	switch criterion {
	case model.SortOldest:
		return "oldest"
	case model.SortPriority:
		return "priority"
	case model.SortDueDate:
		return "due date"
	default:
		return "newest"
	}
}
