package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/hubctl/hubctl/internal/commands"
	"github.com/hubctl/hubctl/internal/params"
	"github.com/hubctl/hubctl/internal/schema"
)

func (a *App) callCommand() *cobra.Command {
	var inline, file string

	cmd := &cobra.Command{
		Use:   "call <method> [args...]",
		Short: "Call any hub method by name",
		Long: `Calls a method by its dotted name. Positional arguments map onto the
method's positional parameters as they do for the generated commands.

Methods missing from the schema, or that could not become commands, are
still callable: their parameters are sent exactly as given with --params
or --file.`,
		Example: `  hubctl call device.get lamp-1
  hubctl call device.set --params '{"id": "lamp-1", "state": {"on": true}}'`,
		Args: cobra.MinimumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return a.registry.Methods(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			name, positional := args[0], args[1:]

			method, err := a.index.Method(name)
			switch {
			case errors.Is(err, schema.ErrMethodNotFound):
				a.opts.Logger.Debug("calling method outside the schema", "method", name)
				method = nil
			case err != nil:
				return err
			}

			inv := commands.Invocation{
				Meta:    commands.Meta{Method: name, Schema: method},
				Profile: a.flags.profile,
				Options: params.Options{Params: inline, File: file},
				Args:    positional,
			}
			runner := &commands.Runner{Open: a.connect, Render: a.renderResponse}
			return runner.Run(cmd.Context(), inv)
		},
	}
	cmd.Flags().StringVar(&inline, commands.FlagParams, "", "Parameters as inline JSON")
	cmd.Flags().StringVar(&file, commands.FlagFile, "", "Path to a JSON file with parameters")
	return cmd
}
