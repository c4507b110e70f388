package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// isInteractive reports whether f is a terminal a user can answer prompts on.
func isInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// prompter asks questions on out and reads answers from in.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// ask prints question and returns the trimmed answer. Input ending before
// an answer is given is an error.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question. Only "y" and "yes" count as yes.
func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.ask(question + " (y/n): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// choose lists items numbered from 1 and asks until a valid number is
// entered. It returns the chosen index.
func (p *prompter) choose(title string, items []string) (int, error) {
	fmt.Fprintln(p.out, title)
	for i, item := range items {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, item)
	}

	for {
		answer, err := p.ask(fmt.Sprintf("Select a version (1-%d): ", len(items)))
		if err != nil {
			return 0, err
		}

		n, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintln(p.out, "Invalid input")
			continue
		}
		if n < 1 || n > len(items) {
			fmt.Fprintf(p.out, "Enter a number between 1 and %d\n", len(items))
			continue
		}
		return n - 1, nil
	}
}
