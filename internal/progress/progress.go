// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

/*
Package progress provides a single-line CLI progress indicator.
*/
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var spinChars []string = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// UpdateFunc reports that done of total hosts have finished a stage.
type UpdateFunc func(stage string, done int, total int)

type Indicator struct {
	out        io.Writer
	isTerminal bool
	mu         sync.Mutex
	line       string
	lineIsNew  bool
	spinIndex  int
	ticker     *time.Ticker
	done       chan bool
	spinning   bool
}

// NewIndicator creates an Indicator writing to stderr.
func NewIndicator() *Indicator {
	return NewIndicatorTo(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

// NewIndicatorTo creates an Indicator writing to out. On a terminal the line is redrawn
// in place; otherwise each new status is written on its own line.
func NewIndicatorTo(out io.Writer, isTerminal bool) *Indicator {
	return &Indicator{
		out:        out,
		isTerminal: isTerminal,
		done:       make(chan bool),
	}
}

// Line formats a status line, e.g. "probing 3 of 10 (30%)".
func Line(stage string, done int, total int) string {
	pct := 100
	if total > 0 {
		pct = done * 100 / total
	}
	return fmt.Sprintf("%s %d of %d (%d%%)", stage, done, total, pct)
}

// Start starts redrawing the indicator
func (p *Indicator) Start() {
	if !p.isTerminal {
		return
	}
	p.ticker = time.NewTicker(250 * time.Millisecond)
	p.spinning = true
	go p.onTick()
}

// Finish stops the indicator and leaves the last status on screen
func (p *Indicator) Finish() {
	if p.spinning {
		p.ticker.Stop()
		p.done <- true
		p.spinning = false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draw()
	if p.isTerminal && p.line != "" {
		fmt.Fprintln(p.out)
	}
}

// Update sets the current status. It is safe for concurrent use.
func (p *Indicator) Update(stage string, done int, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	line := Line(stage, done, total)
	if line != p.line {
		p.line = line
		p.lineIsNew = true
	}
	if !p.isTerminal {
		p.draw()
	}
}

func (p *Indicator) onTick() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			p.draw()
			p.mu.Unlock()
		}
	}
}

func (p *Indicator) draw() {
	if p.line == "" {
		return
	}
	if !p.isTerminal {
		if p.lineIsNew {
			fmt.Fprintln(p.out, p.line)
			p.lineIsNew = false
		}
		return
	}
	fmt.Fprintf(p.out, "\r\x1b[2K%s  %s", spinChars[p.spinIndex], p.line)
	p.lineIsNew = false
	p.spinIndex = (p.spinIndex + 1) % len(spinChars)
}
