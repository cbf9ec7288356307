package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/modlingo/modlingo/internal/models"
	"github.com/modlingo/modlingo/internal/tasks"
)

// refreshInterval is how often the dashboard reloads task data.
const refreshInterval = 3 * time.Second

// taskPageSize bounds how many tasks the dashboard loads per refresh.
const taskPageSize = 100

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TaskListView ViewState = iota
	RecordListView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	orch         *tasks.Orchestrator
	width        int
	height       int
	taskList     list.Model
	taskListSet  bool
	recordList   list.Model
	selectedTask *models.Task
	total        int
	err          error
	help         help.Model
	keys         keyMap
}

type tasksLoadedMsg struct {
	tasks []*models.Task
	total int
	err   error
}

type recordsLoadedMsg struct {
	records []*models.ConfirmationRecord
	err     error
}

type tickMsg time.Time

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, orch *tasks.Orchestrator) *Model {
	return &Model{
		ctx:  ctx,
		view: TaskListView,
		orch: orch,
		help: help.New(),
		keys: newKeyMap(),
	}
}

// Init loads the first page of tasks and starts the refresh tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadTasks(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.taskListSet {
			m.taskList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TaskListView:
			return m.handleTaskListKeys(msg)
		case RecordListView:
			return m.handleRecordListKeys(msg)
		}

	case tasksLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.total = msg.total
		items := make([]list.Item, len(msg.tasks))
		for i, t := range msg.tasks {
			items[i] = taskItem{task: t}
		}
		if !m.taskListSet {
			m.taskList = list.New(items, list.NewDefaultDelegate(), 0, 0)
			m.taskList.Title = "Translation Tasks"
			m.taskList.SetSize(m.width-4, m.height-8)
			m.taskListSet = true
		} else {
			m.taskList.SetItems(items)
		}
		return m, nil

	case recordsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = TaskListView
			return m, nil
		}
		items := make([]list.Item, len(msg.records))
		for i, rec := range msg.records {
			items[i] = recordItem{record: rec}
		}
		m.recordList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.recordList.Title = fmt.Sprintf("Records for '%s'", m.selectedTask.Filename())
		m.recordList.SetSize(m.width-4, m.height-8)
		m.view = RecordListView
		return m, nil

	case tickMsg:
		if m.view == TaskListView {
			return m, tea.Batch(m.loadTasks(), m.tick())
		}
		return m, m.tick()
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case TaskListView:
		return m.renderTaskList()
	case RecordListView:
		return m.renderRecordList()
	default:
		return ""
	}
}

func (m *Model) handleTaskListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		return m, m.loadTasks()
	case "enter":
		if !m.taskListSet {
			return m, nil
		}
		selected := m.taskList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(taskItem); ok {
				m.selectedTask = item.task
				return m, m.loadRecords(item.task.ID())
			}
		}
	}

	var cmd tea.Cmd
	if m.taskListSet {
		m.taskList, cmd = m.taskList.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleRecordListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = TaskListView
		m.selectedTask = nil
		return m, m.loadTasks()
	}

	var cmd tea.Cmd
	m.recordList, cmd = m.recordList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case TaskListView:
		if m.taskListSet {
			m.taskList, cmd = m.taskList.Update(msg)
		}
	case RecordListView:
		m.recordList, cmd = m.recordList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadTasks() tea.Cmd {
	return func() tea.Msg {
		list, total, err := m.orch.ListTasks(tasks.ListTasksOpts{Page: 1, PerPage: taskPageSize})
		return tasksLoadedMsg{tasks: list, total: total, err: err}
	}
}

func (m *Model) loadRecords(taskID string) tea.Cmd {
	return func() tea.Msg {
		records, _, err := m.orch.ListRecords(taskID, tasks.ListRecordsOpts{Page: 1, PerPage: taskPageSize})
		return recordsLoadedMsg{records: records, err: err}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) renderTaskList() string {
	if !m.taskListSet {
		return styles.help.Render("Loading tasks...")
	}

	summary := styles.help.Render(fmt.Sprintf("%d tasks total", m.total))
	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s", m.taskList.View(), summary, helpView)
}

func (m *Model) renderRecordList() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.recordList.View(), helpView)
}
