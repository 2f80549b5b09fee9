package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hubctl/hubctl/internal/hub"
	"github.com/hubctl/hubctl/internal/scenario"
	"github.com/hubctl/hubctl/internal/ui"
)

// result is what a built-in command produces.
type result struct {
	Data     interface{}
	Meta     *Meta
	Warnings []Warning
	// Human writes the table-format rendering. Without it table output
	// falls back to the generic renderer.
	Human func(w io.Writer)
}

// emit writes a command result in the selected output format.
func (a *App) emit(r result) error {
	switch a.opts.Output {
	case ui.FormatJSON:
		return writeSuccess(a.streams.Out, r.Data, r.Warnings, r.Meta)
	case ui.FormatTable:
		if r.Human != nil {
			r.Human(a.streams.Out)
			for _, w := range r.Warnings {
				fmt.Fprintln(a.streams.Err, ui.Warning(w.Message))
			}
			return nil
		}
	}
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return ui.Render(a.streams.Out, a.opts.Output, raw)
}

// renderResponse writes the data of a successful method call.
func (a *App) renderResponse(method string, resp *hub.Response) error {
	if a.opts.Output == ui.FormatJSON {
		var data interface{}
		if len(resp.Data) > 0 {
			data = resp.Data
		}
		return writeSuccess(a.streams.Out, data, nil, &Meta{Method: method})
	}
	return ui.Render(a.streams.Out, a.opts.Output, resp.Data)
}

// batchError is a failure partway through a scenario batch. Results holds
// what was done before the failure.
type batchError struct {
	Results []scenario.Result
	Err     error
}

func (e *batchError) Error() string { return e.Err.Error() }

func (e *batchError) Unwrap() error { return e.Err }

// reportError writes err as a JSON error envelope on stdout or as a status
// line on stderr.
func (a *App) reportError(err error) {
	code := errorCode(err)
	if a.logger != nil {
		a.logger.Debug("command failed", "code", code, "err", err)
	}

	format, ferr := a.outputFormat()
	if ferr != nil {
		format = ui.FormatTable
	}

	var details interface{}
	var batch *batchError
	if errors.As(err, &batch) && len(batch.Results) > 0 {
		details = map[string]interface{}{"results": batch.Results}
	}

	if format == ui.FormatJSON {
		_ = writeError(a.streams.Out, code, err.Error(), details, suggestion(code))
		return
	}
	if batch != nil {
		printResults(a.streams.Out, batch.Results)
	}
	fmt.Fprintln(a.streams.Err, ui.Error(err.Error()))
	if hint := suggestion(code); hint != "" {
		fmt.Fprintln(a.streams.Err, ui.Hint(hint))
	}
}

func suggestion(code string) string {
	switch code {
	case ErrProfileNotFound:
		return "Run 'hubctl profile add <name> --url ws://<host>/ws' to configure a hub"
	case ErrSchemaNotCached:
		return "Run 'hubctl schema refresh' to fetch the hub's schema"
	case ErrNotInJournal:
		return "Pull the scenario first, or restore without --offline"
	case ErrIntegrity:
		return "Fix the extracted files, or run 'hubctl scenarios restore <dir>' to start over"
	case ErrMethodNotFound:
		return "Run 'hubctl schema categories' to see available methods"
	}
	return ""
}

// spin shows a spinner on stderr until the returned func is called. Only
// table output on a terminal animates.
func (a *App) spin(message string) func() {
	if a.opts == nil || a.opts.Output != ui.FormatTable {
		return func() {}
	}
	s := ui.NewSpinner(a.streams.Err, message)
	s.Start()
	return s.Stop
}
