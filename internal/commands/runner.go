package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hubctl/hubctl/internal/hub"
	"github.com/hubctl/hubctl/internal/params"
)

// Caller is the RPC surface a synthesized command needs.
type Caller interface {
	Call(ctx context.Context, method string, params interface{}) (*hub.Response, error)
	Close() error
}

// MethodError wraps a failure of one synthesized command with its method.
type MethodError struct {
	Method string
	Err    error
}

func (e *MethodError) Error() string {
	msg := e.Err.Error()
	if strings.HasPrefix(msg, e.Method+": ") {
		return msg
	}
	return e.Method + ": " + msg
}

func (e *MethodError) Unwrap() error { return e.Err }

// Runner executes synthesized commands: it builds the parameters, opens a
// connection for the selected profile, performs one call and renders the
// result.
type Runner struct {
	// Open returns a caller for a profile; "" selects the active profile.
	Open func(profile string) (Caller, error)
	// Render writes a successful response.
	Render func(method string, resp *hub.Response) error
}

// Run performs one invocation. The connection is always released, whether
// the call succeeds or not.
func (r *Runner) Run(ctx context.Context, inv Invocation) error {
	method := inv.Meta.Method

	built, err := params.Build(inv.Options, inv.Meta.Schema, inv.Args)
	if err != nil {
		return &MethodError{Method: method, Err: err}
	}

	caller, err := r.Open(inv.Profile)
	if err != nil {
		return err
	}
	defer caller.Close()

	resp, err := caller.Call(ctx, method, built)
	if err != nil {
		return &MethodError{Method: method, Err: err}
	}
	if err := resp.Err(method); err != nil {
		return err
	}
	return r.Render(method, resp)
}

// Handler adapts the runner to a cobra command handler.
func (r *Runner) Handler() Handler {
	return func(cmd *cobra.Command, inv Invocation) error {
		return r.Run(cmd.Context(), inv)
	}
}
