package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/modlingo/modlingo/internal/models"
)

var (
	_ list.Item = taskItem{}
	_ list.Item = recordItem{}
)

// taskItem wraps [models.Task] to implement [list.Item].
type taskItem struct {
	task *models.Task
}

func (i taskItem) FilterValue() string { return i.task.Filename() }
func (i taskItem) Title() string {
	return fmt.Sprintf("%s → %s", i.task.Filename(), i.task.TargetLang())
}
func (i taskItem) Description() string {
	p := i.task.Progress()
	status := styles.Status(i.task.Status()).Render(string(i.task.Status()))
	desc := fmt.Sprintf("%s %d/%d", status, p.Translated, p.Total)
	if i.task.ErrorMessage() != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.task.ErrorMessage())
	}
	return desc
}

// recordItem wraps [models.ConfirmationRecord] to implement [list.Item].
type recordItem struct {
	record *models.ConfirmationRecord
}

func (i recordItem) FilterValue() string { return i.record.SourceText() }
func (i recordItem) Title() string       { return i.record.SourceText() }
func (i recordItem) Description() string {
	desc := i.record.TargetText()
	if desc == "" {
		desc = "(untranslated)"
	}
	return fmt.Sprintf("%s • %s", i.record.Status(), desc)
}
