package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/hubctl/hubctl/internal/ui"
)

// prompter asks yes/no questions on the terminal. One line is read per
// question and there is no timeout.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	// interactive reports whether a human can answer; when false every
	// question is declined without being shown.
	interactive func() bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: stdioIsTerminal,
	}
}

func stdioIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}

func (p *prompter) confirm(message string) bool {
	if p.interactive == nil || !p.interactive() {
		return false
	}
	if message == "" {
		message = "Apply changes?"
	}
	fmt.Fprintf(p.out, "%s %s ", message, ui.Hint("[y/N]"))
	response, _ := p.in.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
