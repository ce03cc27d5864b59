package main

import (
	"fmt"
	"io"

	"github.com/haltman-io/aliasctl/internal/client"
)

// consoleNotifier renders workflow and poller notices on a writer,
// normally stderr so command output stays pipeable.
type consoleNotifier struct {
	out io.Writer
}

func (n consoleNotifier) print(level string, notice client.Notice) {
	if notice.Description != "" {
		fmt.Fprintf(n.out, "%s %s: %s\n", level, notice.Title, notice.Description)
		return
	}
	fmt.Fprintf(n.out, "%s %s\n", level, notice.Title)
}

func (n consoleNotifier) Info(notice client.Notice)    { n.print("[info]", notice) }
func (n consoleNotifier) Success(notice client.Notice) { n.print("[ok]", notice) }
func (n consoleNotifier) Error(notice client.Notice)   { n.print("[error]", notice) }
