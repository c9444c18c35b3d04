package debugger

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/polyfile/pfdbg/ansiwriter"
)

// ErrPromptCanceled is returned by Confirm when the input stream hits EOF
// mid-prompt — the cancel signal spec.md §5 describes for nested
// confirmation prompts, as distinct from EOF at the top-level REPL prompt
// (which exits the process).
var ErrPromptCanceled = errors.New("debugger: prompt canceled (EOF)")

// Confirm implements submatch.Prompter and backs every y/n prompt the
// REPL itself issues (e.g. none currently, but kept uniform with the
// driver's prompts). It loops on unrecognized input exactly as the
// upstream prompt() does.
func (d *Debugger) Confirm(message string, defaultYes bool) (bool, error) {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	w := ansiwriter.New(d.out)

	for {
		fmt.Fprint(d.out, w.FormatLine(message+" "+hint+" ", ansiwriter.Style{Bold: true}))

		line, err := d.in.ReadString('\n')
		if err != nil && line == "" {
			if errors.Is(err, io.EOF) {
				return false, ErrPromptCanceled
			}

			return false, err
		}

		answer := strings.ToLower(strings.TrimSpace(line))

		switch answer {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}
