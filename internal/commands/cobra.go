package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hubctl/hubctl/internal/params"
)

// Invocation is one parsed call of a synthesized command.
type Invocation struct {
	Meta    Meta
	Profile string
	Options params.Options
	Args    []string
}

// UsageError reports a command line that does not match the command's
// declared arguments or flags.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// Handler executes a synthesized command.
type Handler func(cmd *cobra.Command, inv Invocation) error

// GenerateCategoryCommand creates the parent command for a category with one
// subcommand per method.
func GenerateCategoryCommand(cat CategoryMeta, handler Handler) *cobra.Command {
	parent := &cobra.Command{
		Use:   cat.Name,
		Short: fmt.Sprintf("Call %s methods", cat.Name),
		Args:  cobra.NoArgs,
	}
	for _, meta := range cat.Commands {
		parent.AddCommand(GenerateCobraCommand(meta, handler))
	}
	return parent
}

// GenerateCobraCommand creates a Cobra command from command metadata.
func GenerateCobraCommand(meta Meta, handler Handler) *cobra.Command {
	cmd := &cobra.Command{
		Use:   meta.Use(),
		Short: meta.Description,
		Long:  meta.LongDesc,
		Args:  positionalArgs(meta),
	}

	for _, flag := range meta.Flags {
		switch flag.Type {
		case FlagTypeBool:
			cmd.Flags().Bool(flag.Name, false, flag.Description)
		default:
			// Numbers are kept as strings; the parameter builder coerces
			// them so errors can name the flag.
			cmd.Flags().String(flag.Name, "", flag.Description)
		}
	}

	if len(meta.Args) > 0 {
		cmd.ValidArgsFunction = generateCompletionFunc(meta.Args)
	}

	if handler != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			return handler(cmd, collect(cmd, meta, args))
		}
	}

	return cmd
}

// positionalArgs requires every positional argument unless the parameters
// come from --params or --file, and never accepts more than declared.
func positionalArgs(meta Meta) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > len(meta.Args) {
			return &UsageError{Err: fmt.Errorf("accepts at most %d arg(s), received %d", len(meta.Args), len(args))}
		}
		if len(args) == len(meta.Args) {
			return nil
		}
		if cmd.Flags().Changed(FlagParams) || cmd.Flags().Changed(FlagFile) {
			return nil
		}
		missing := make([]string, 0, len(meta.Args)-len(args))
		for _, arg := range meta.Args[len(args):] {
			missing = append(missing, "<"+arg.Name+">")
		}
		return &UsageError{Err: fmt.Errorf("missing required argument(s) %s (or pass --%s / --%s)",
			strings.Join(missing, " "), FlagParams, FlagFile)}
	}
}

// collect gathers the flags that were set on the command line. Unset flags
// are left out so they never override values from --params or --file.
func collect(cmd *cobra.Command, meta Meta, args []string) Invocation {
	inv := Invocation{
		Meta: meta,
		Args: args,
		Options: params.Options{
			Flags: make(map[string]params.Flag),
		},
	}
	inv.Profile, _ = cmd.Flags().GetString(FlagProfile)
	inv.Options.Params, _ = cmd.Flags().GetString(FlagParams)
	inv.Options.File, _ = cmd.Flags().GetString(FlagFile)

	for _, flag := range meta.Flags {
		if len(flag.Path) == 0 || !cmd.Flags().Changed(flag.Name) {
			continue
		}
		var value interface{}
		switch flag.Type {
		case FlagTypeBool:
			value, _ = cmd.Flags().GetBool(flag.Name)
		default:
			value, _ = cmd.Flags().GetString(flag.Name)
		}
		inv.Options.Flags[flag.Key()] = params.Flag{Name: flag.Name, Value: value}
	}
	return inv
}

// generateCompletionFunc creates a shell completion function based on arg metadata.
func generateCompletionFunc(args []ArgMeta) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, completedArgs []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		argIndex := len(completedArgs)
		if argIndex >= len(args) {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		var matches []string
		for _, c := range args[argIndex].Completions {
			if strings.HasPrefix(c, toComplete) {
				matches = append(matches, c)
			}
		}
		return matches, cobra.ShellCompDirectiveNoFileComp
	}
}
