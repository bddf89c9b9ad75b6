package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"raur/internal/app"
	"raur/internal/types"
)

// askForConfirmation defaults to yes on an empty answer and to no on EOF.
func askForConfirmation(in *bufio.Reader, out io.Writer, format string, a ...any) bool {
	prompt := fmt.Sprintf("%s [Y/n]: ", fmt.Sprintf(format, a...))
	for {
		fmt.Fprint(out, colInfo.Sprintf("%s", prompt))
		response, err := in.ReadString('\n')
		if err != nil && response == "" {
			return false
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response == "y" || response == "yes" || response == "" {
			return true
		}
		if response == "n" || response == "no" {
			return false
		}
		fmt.Fprintln(out, colWarn.Sprintf("Invalid input."))
		if err != nil {
			return false
		}
	}
}

// planConfirmer prints the plan and asks before building. Without a
// terminal on stdin it never blocks and the run proceeds.
func planConfirmer(in io.Reader, out io.Writer, noConfirm bool, interactive bool) app.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(plan types.BuildPlan) bool {
		if noConfirm || !interactive {
			return true
		}
		return askForConfirmation(reader, out, "Proceed with building %d packages?", plan.Len())
	}
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
