package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hubctl/hubctl/internal/commands"
	"github.com/hubctl/hubctl/internal/hub"
	"github.com/hubctl/hubctl/internal/schema"
	"github.com/hubctl/hubctl/internal/schemacache"
	"github.com/hubctl/hubctl/internal/ui"
)

type categoryInfo struct {
	Name    string `json:"name"`
	Methods int    `json:"methods"`
	Command bool   `json:"command"`
}

type methodSummary struct {
	Method  string `json:"method"`
	Command string `json:"command,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type argDetail struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Path        string   `json:"path"`
	Description string   `json:"description,omitempty"`
	Values      []string `json:"values,omitempty"`
}

type flagDetail struct {
	Flag        string `json:"flag"`
	Type        string `json:"type"`
	Path        string `json:"path,omitempty"`
	Description string `json:"description,omitempty"`
}

type methodDetail struct {
	Method      string       `json:"method"`
	Category    string       `json:"category"`
	Description string       `json:"description,omitempty"`
	Usage       string       `json:"usage,omitempty"`
	Args        []argDetail  `json:"args,omitempty"`
	Flags       []flagDetail `json:"flags,omitempty"`
	Rejected    string       `json:"rejected,omitempty"`
}

func (a *App) schemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and refresh the hub method schema",
		Long: `Method commands are generated from a schema. hubctl uses the schema cached
for the selected profile, or the one bundled with the binary when none is cached.`,
		Args: cobra.NoArgs,
	}
	cmd.AddCommand(
		a.schemaRefreshCommand(),
		a.schemaClearCommand(),
		a.schemaCategoriesCommand(),
		a.schemaMethodsCommand(),
		a.schemaShowCommand(),
	)
	return cmd
}

func (a *App) schemaCachePath() string {
	return filepath.Join(a.opts.DataDir, schemacache.FileName)
}

func (a *App) schemaRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the schema from the hub and cache it for the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient("", func(client *hub.Client, profile string) error {
				stop := a.spin("Fetching schema from " + profile)
				doc, raw, err := client.Schema(cmd.Context())
				stop()
				if err != nil {
					return err
				}

				cache, err := schemacache.Open(a.schemaCachePath())
				if err != nil {
					return err
				}
				defer cache.Close()

				fetchedAt := a.now().UTC()
				if err := cache.Store(profile, raw, fetchedAt); err != nil {
					return err
				}
				a.opts.Logger.Debug("schema cached", "profile", profile, "methods", len(doc.Methods))

				data := map[string]interface{}{
					"profile":    profile,
					"version":    doc.Version,
					"methods":    len(doc.Methods),
					"fetched_at": fetchedAt.Format(time.RFC3339),
				}
				return a.emit(result{
					Data: data,
					Human: func(w io.Writer) {
						fmt.Fprintln(w, ui.Successf("Cached schema for %s %s",
							ui.Bold.Render(profile), ui.Count(len(doc.Methods), "method", "methods")))
					},
				})
			})
		},
	}
}

func (a *App) schemaClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the cached schema of the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.resolveProfile("")
			if err != nil {
				return err
			}
			cache, err := schemacache.Open(a.schemaCachePath())
			if err != nil {
				return err
			}
			defer cache.Close()
			if err := cache.Delete(profile); err != nil {
				return err
			}
			return a.emit(result{
				Data: map[string]string{"profile": profile},
				Human: func(w io.Writer) {
					fmt.Fprintln(w, ui.Successf("Cleared cached schema for %s", ui.Bold.Render(profile)))
				},
			})
		},
	}
}

func (a *App) schemaWarnings() []Warning {
	var warnings []Warning
	if a.source == sourceBundled {
		warnings = append(warnings, Warning{
			Code:    WarnBundledSchema,
			Message: "using the bundled schema; run 'hubctl schema refresh' for the hub's own",
		})
	}
	for _, name := range a.shadowed {
		warnings = append(warnings, Warning{
			Code:    WarnCategoryShadow,
			Message: fmt.Sprintf("category %s is shadowed by a built-in command; use 'hubctl call'", name),
		})
	}
	return warnings
}

func (a *App) schemaCategoriesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List method categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []categoryInfo
			for _, name := range a.index.Categories() {
				infos = append(infos, categoryInfo{
					Name:    name,
					Methods: len(a.index.MethodsByCategory(name)),
					Command: !slices.Contains(a.shadowed, name),
				})
			}
			return a.emit(result{
				Data:     infos,
				Meta:     &Meta{Count: len(infos)},
				Warnings: a.schemaWarnings(),
				Human: func(w io.Writer) {
					table := ui.NewTable(2)
					for _, info := range infos {
						table.AddRow(ui.Bold.Render(info.Name), ui.Count(info.Methods, "method", "methods"))
					}
					fmt.Fprint(w, table.String())
				},
			})
		},
	}
}

func (a *App) schemaMethodsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "methods <category>",
		Short: "List the methods of a category",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return a.index.Categories(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			category := args[0]
			methods := a.index.MethodsByCategory(category)

			var warnings []Warning
			for name, reason := range a.registry.Rejected {
				if m := a.doc.Methods[name]; m != nil && m.Category == category {
					warnings = append(warnings, Warning{Code: WarnMethodRejected, Message: reason.Error()})
				}
			}
			slices.SortFunc(warnings, func(x, y Warning) int { return strings.Compare(x.Message, y.Message) })
			if len(methods) == 0 && len(warnings) == 0 {
				return fmt.Errorf("%w: no methods in category %q", schema.ErrMethodNotFound, category)
			}

			summaries := make([]methodSummary, 0, len(methods))
			for _, m := range methods {
				s := methodSummary{Method: m.Name, Summary: schema.Summary(m.Description)}
				if meta, ok := a.registry.Lookup(m.Name); ok && !slices.Contains(a.shadowed, category) {
					s.Command = "hubctl " + meta.Category + " " + meta.Use()
				}
				summaries = append(summaries, s)
			}
			return a.emit(result{
				Data:     summaries,
				Meta:     &Meta{Count: len(summaries)},
				Warnings: warnings,
				Human: func(w io.Writer) {
					table := ui.NewTable(2)
					for _, s := range summaries {
						table.AddRow(ui.Bold.Render(s.Method), s.Summary)
					}
					fmt.Fprint(w, table.String())
				},
			})
		},
	}
}

func (a *App) schemaShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <method>",
		Short: "Show a method's description and parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.methodDetail(args[0])
			if err != nil {
				return err
			}
			return a.emit(result{
				Data: detail,
				Human: func(w io.Writer) {
					width := ui.NewDisplayContext(w).AvailableWidth(ui.MarkdownRenderMargin)
					rendered, err := ui.RenderMarkdown(methodMarkdown(detail), width)
					if err != nil {
						a.opts.Logger.Debug("markdown rendering failed", "err", err)
						rendered = methodMarkdown(detail)
					}
					fmt.Fprint(w, rendered)
				},
			})
		},
	}
}

func (a *App) methodDetail(name string) (*methodDetail, error) {
	if meta, ok := a.registry.Lookup(name); ok {
		detail := &methodDetail{
			Method:      meta.Method,
			Category:    meta.Category,
			Description: strings.TrimSpace(meta.Schema.Description),
			Usage:       "hubctl " + meta.Category + " " + meta.Use(),
		}
		if slices.Contains(a.shadowed, meta.Category) {
			detail.Usage = "hubctl call " + meta.Method
		}
		for _, arg := range meta.Args {
			detail.Args = append(detail.Args, argDetail{
				Name:        arg.Name,
				Type:        string(arg.Type),
				Path:        strings.Join(arg.Path, "."),
				Description: arg.Description,
				Values:      arg.Completions,
			})
		}
		for _, flag := range meta.Flags {
			detail.Flags = append(detail.Flags, flagDetail{
				Flag:        "--" + flag.Name,
				Type:        string(flag.Type),
				Path:        flag.Key(),
				Description: flag.Description,
			})
		}
		return detail, nil
	}

	m, ok := a.doc.Methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrMethodNotFound, name)
	}
	detail := &methodDetail{
		Method:      m.Name,
		Category:    m.Category,
		Description: strings.TrimSpace(m.Description),
		Usage:       "hubctl call " + m.Name + " --params '{...}'",
	}
	if reason, rejected := a.registry.Rejected[name]; rejected {
		detail.Rejected = reason.Error()
	}
	return detail, nil
}

func methodMarkdown(d *methodDetail) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", d.Method)
	if d.Description != "" {
		sb.WriteString(d.Description)
		sb.WriteString("\n\n")
	}
	if d.Rejected != "" {
		fmt.Fprintf(&sb, "> No command: %s\n\n", d.Rejected)
	}
	fmt.Fprintf(&sb, "## Usage\n\n```sh\n%s\n```\n\n", d.Usage)
	if len(d.Args) > 0 {
		sb.WriteString("## Arguments\n\n| Argument | Type | Parameter | Description |\n|---|---|---|---|\n")
		for _, arg := range d.Args {
			desc := arg.Description
			if len(arg.Values) > 0 {
				desc += " (one of: " + strings.Join(arg.Values, ", ") + ")"
			}
			fmt.Fprintf(&sb, "| `<%s>` | %s | `%s` | %s |\n", arg.Name, arg.Type, arg.Path, desc)
		}
		sb.WriteString("\n")
	}
	var params []flagDetail
	for _, flag := range d.Flags {
		if flag.Path != "" {
			params = append(params, flag)
		}
	}
	if len(params) > 0 {
		sb.WriteString("## Flags\n\n| Flag | Type | Description |\n|---|---|---|\n")
		for _, flag := range params {
			fmt.Fprintf(&sb, "| `%s` | %s | %s |\n", flag.Flag, flag.Type, flag.Description)
		}
		sb.WriteString("\n")
	}
	if d.Rejected == "" {
		fmt.Fprintf(&sb, "Every method also takes `--%s`, `--%s` and `--%s`.\n",
			commands.FlagProfile, commands.FlagParams, commands.FlagFile)
	}
	return sb.String()
}
