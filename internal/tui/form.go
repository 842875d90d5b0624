package tui

import (
	"strings"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldTags
	fieldDue
)

func buildFormFields(task *model.Task) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Description"},
		{Label: "Priority (space/←→)"},
		{Label: "Tags (space/←→)"},
		{Label: "Due (YYYY-MM-DD)"},
	}

	if task == nil {
		fields[fieldPriority].Value = string(model.PriorityMedium)
		return fields
	}

	fields[fieldTitle].Value = task.Title
	fields[fieldDescription].Value = task.Description
	fields[fieldPriority].Value = string(task.Priority)
	fields[fieldTags].Value = strings.Join(task.Tags, ", ")
	fields[fieldDue].Value = task.DueDate
	return fields
}

// parseFormFields turns the form into a validated creation payload.
func parseFormFields(fields []formField) (model.NewTask, error) {
	input := model.NewTask{
		Title:       fields[fieldTitle].Value,
		Description: fields[fieldDescription].Value,
		Priority:    model.Priority(strings.TrimSpace(fields[fieldPriority].Value)),
		Tags:        parseTags(fields[fieldTags].Value),
		DueDate:     fields[fieldDue].Value,
	}
	if err := input.Validate(); err != nil {
		return model.NewTask{}, err
	}
	return input, nil
}

// patchFromInput rewrites every editable field; an empty due date clears it.
func patchFromInput(input model.NewTask) model.TaskPatch {
	tags := append([]string{}, input.Tags...)
	return model.TaskPatch{
		Title:       &input.Title,
		Description: &input.Description,
		Priority:    &input.Priority,
		Tags:        tags,
		DueDate:     &input.DueDate,
	}
}

func parseTags(value string) []string {
	return model.NormalizeTags(strings.Split(value, ","))
}

func isPriorityField(label string) bool {
	return strings.HasPrefix(label, "Priority")
}

func isTagsField(label string) bool {
	return strings.HasPrefix(label, "Tags")
}
