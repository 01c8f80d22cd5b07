package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zhouzirui/z-salon/backend/internal/model/persona"
)

// errNoSelection is returned when input ends before a valid choice.
var errNoSelection = errors.New("no selection made")

// choosePersona prints a numbered menu and reads the selection. Entries in
// exclude are hidden.
func choosePersona(in *bufio.Reader, out io.Writer, title string, options []persona.Persona, exclude string) (persona.Persona, error) {
	visible := make([]persona.Persona, 0, len(options))
	for _, p := range options {
		if p.ID != exclude {
			visible = append(visible, p)
		}
	}
	if len(visible) == 0 {
		return persona.Persona{}, errNoSelection
	}

	fmt.Fprintln(out, title)
	for i, p := range visible {
		label := p.Name
		if p.Comedian {
			label += " (comedian)"
		}
		fmt.Fprintf(out, "  %d) %s\n", i+1, label)
	}

	for {
		fmt.Fprintf(out, "Select 1-%d: ", len(visible))
		line, err := in.ReadString('\n')
		choice := strings.TrimSpace(line)
		if choice != "" {
			if n, convErr := strconv.Atoi(choice); convErr == nil && n >= 1 && n <= len(visible) {
				return visible[n-1], nil
			}
			for _, p := range visible {
				if strings.EqualFold(p.ID, choice) || strings.EqualFold(p.Name, choice) {
					return p, nil
				}
			}
			fmt.Fprintln(out, "Invalid choice.")
		}
		if err != nil {
			return persona.Persona{}, errNoSelection
		}
	}
}

// readLine prompts and returns one trimmed line. io.EOF is returned once
// input is exhausted and nothing was typed.
func readLine(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		return "", io.EOF
	}
	return line, nil
}
