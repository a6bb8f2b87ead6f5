// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package view shows a rendered report in a scrollable terminal viewer.
package view

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Quit   key.Binding
	Top    key.Binding
	Bottom key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Top: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
}

const helpText = "↑/↓ pgup/pgdn: scroll  g/G: top/bottom  q: quit"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Faint(true).Padding(0, 1)
)

// Model is the Bubble Tea model of the report viewer.
type Model struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
}

// New returns a viewer for content. The viewport is sized on the first window size message.
func New(title string, content string) Model {
	return Model{title: title, content: content}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := max(msg.Height-lipgloss.Height(m.header())-lipgloss.Height(m.footer()), 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	return strings.Join([]string{m.header(), m.viewport.View(), m.footer()}, "\n")
}

func (m Model) header() string {
	return titleStyle.Render(m.title)
}

func (m Model) footer() string {
	percent := 0.0
	if m.ready {
		percent = m.viewport.ScrollPercent() * 100
	}
	return footerStyle.Render(fmt.Sprintf("%s  %3.f%%", helpText, percent))
}

// Show runs the viewer on the terminal until the user quits or ctx is done.
func Show(ctx context.Context, title string, content string) error {
	p := tea.NewProgram(New(title, content), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run report viewer: %w", err)
	}
	return nil
}
