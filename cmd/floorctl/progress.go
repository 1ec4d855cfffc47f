package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"floordesign/models"
	"floordesign/upload"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#86AAEC"))
	phaseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
)

type stateMsg upload.State

type doneMsg struct {
	product models.Product
	err     error
}

// progressModel renders one submission. It only reads the states it is sent.
type progressModel struct {
	name     string
	bar      progress.Model
	state    upload.State
	cancel   context.CancelFunc
	finished bool
	product  models.Product
	err      error
}

func newProgressModel(name string, cancel context.CancelFunc) progressModel {
	return progressModel{
		name:   name,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		state:  upload.State{Phase: upload.PhaseIdle, ProductName: name},
		cancel: cancel,
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, 60)
	case stateMsg:
		m.state = upload.State(msg)
	case doneMsg:
		m.finished = true
		m.product = msg.product
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Ingest " + m.name))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(float64(m.state.Progress) / 100))
	b.WriteString("\n")
	b.WriteString(phaseStyle.Render(fmt.Sprintf("%s · %d/%d images", m.state.Phase, m.state.Uploaded, m.state.Total)))
	b.WriteString("\n")

	switch {
	case m.finished && m.err != nil:
		b.WriteString(errorStyle.Render(upload.UserMessage(m.err)))
		b.WriteString("\n")
	case m.finished:
		b.WriteString(doneStyle.Render("Produit enregistré"))
		b.WriteString("\n")
	case m.state.Error != "":
		b.WriteString(errorStyle.Render(m.state.Error))
		b.WriteString("\n")
	}
	return b.String()
}
