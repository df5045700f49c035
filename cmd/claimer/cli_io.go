package main

import (
	"bufio"
	"fmt"
	"os"

	"golang.org/x/term"
)

// askExitAndQuit waits for Enter before exiting when attached to a terminal,
// so a double-clicked console window does not vanish with the error.
func askExitAndQuit(code int) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "Exit now? Press Enter to close...")
		_, _ = bufio.NewReader(os.Stdin).ReadBytes('\n')
	}
	os.Exit(code)
}
