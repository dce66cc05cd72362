package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bramburn/timetracker/internal/annotation"
)

// ConsolePrompter asks for an idle annotation on an interactive terminal.
// Used for development and headful console runs; tray-only deployments run
// without a prompter.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter creates a prompter reading answers from in.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Prompt blocks until the user selects a reason or dismisses the prompt with
// an empty selection.
func (p *ConsolePrompter) Prompt(req annotation.Request) (annotation.Result, bool) {
	fmt.Fprintf(p.out, "\nYou were idle for %s. What were you doing?\n", annotation.FormatDuration(req.Duration))
	for i, reason := range req.Reasons {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, reason)
	}
	fmt.Fprint(p.out, "Select a reason (enter to skip): ")

	line, err := p.in.ReadString('\n')
	if err != nil {
		return annotation.Result{}, false
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return annotation.Result{}, false
	}

	choice, err := strconv.Atoi(line)
	if err != nil || choice < 1 || choice > len(req.Reasons) {
		return annotation.Result{}, false
	}

	fmt.Fprint(p.out, "Note (optional): ")
	note, err := p.in.ReadString('\n')
	if err != nil {
		note = ""
	}

	return annotation.Result{
		Reason: req.Reasons[choice-1],
		Note:   strings.TrimSpace(note),
	}, true
}
