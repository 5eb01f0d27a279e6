package ui

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/term"
)

// PromptPassword reads a password from the terminal without echoing it. The
// terminal state is restored on every exit path, including an interrupt mid
// prompt. When stdin is not a terminal (tests, pipes) it falls back to a
// plain line read.
//
// The password is never logged or persisted; callers zero the returned slice
// when done.
func PromptPassword(label string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, label+": ")

	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return nil, err
		}
		fmt.Fprintln(os.Stderr)
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}

	state, err := term.GetState(fd)
	if err != nil {
		return nil, fmt.Errorf("reading terminal state: %w", err)
	}

	// An interrupt during the no-echo read must restore the terminal before
	// the process dies.
	sigc := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigc, os.Interrupt)
	go func() {
		select {
		case <-sigc:
			term.Restore(fd, state) //nolint:errcheck
			fmt.Fprintln(os.Stderr)
			os.Exit(130)
		case <-done:
		}
	}()
	defer func() {
		signal.Stop(sigc)
		close(done)
	}()

	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}
