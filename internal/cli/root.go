// Package cli implements the hubctl command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hubctl/hubctl/internal/commands"
	"github.com/hubctl/hubctl/internal/config"
	"github.com/hubctl/hubctl/internal/credentials"
	"github.com/hubctl/hubctl/internal/hub"
	"github.com/hubctl/hubctl/internal/schema"
	"github.com/hubctl/hubctl/internal/schemacache"
	"github.com/hubctl/hubctl/internal/ui"
)

// Where the method schema of an invocation came from.
const (
	sourceCache   = "cache"
	sourceBundled = "bundled"
)

const (
	groupCore    = "core"
	groupMethods = "methods"
)

// errFailed is returned by Execute after the error has been reported.
var errFailed = errors.New("command failed")

// Streams are the standard streams of one invocation.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// globalFlags are the root persistent flags.
type globalFlags struct {
	config  string
	state   string
	profile string
	output  string
	verbose bool
}

func (g *globalFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&g.config, "config", "", "Path to config file")
	fs.StringVar(&g.state, "state", "", "Path to state file (overrides state_file in config)")
	fs.StringVar(&g.profile, "profile", "", "Hub profile to use")
	fs.StringVarP(&g.output, "output", "o", "", "Output format: json, yaml or table")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "Log debug details to stderr")
}

// Options is the resolved configuration of one invocation. It is built once
// before any command runs and read by every handler.
type Options struct {
	ConfigPath string
	StatePath  string
	DataDir    string
	Config     *config.Config
	Output     ui.Format
	Timeout    time.Duration
	Logger     *slog.Logger
}

// App is one hubctl invocation.
type App struct {
	streams Streams
	flags   globalFlags
	opts    *Options

	// Resolved before the command tree is built.
	preOutput string
	cfg       *config.Config
	cfgPath   string
	cfgErr    error
	logger    *slog.Logger
	doc       *schema.Document
	source    string
	index     *schema.Index
	registry  *commands.Registry
	shadowed  []string

	prompter *prompter
	now      func() time.Time
}

func newApp(streams Streams) *App {
	return &App{
		streams:  streams,
		prompter: newPrompter(streams.In, streams.Err),
		now:      time.Now,
	}
}

// Execute runs hubctl with the process arguments and streams.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if code := Run(ctx, os.Args[1:], StdStreams()); code != 0 {
		return errFailed
	}
	return nil
}

// Run executes one command line and returns the process exit code. Errors
// are reported on the streams before Run returns.
func Run(ctx context.Context, args []string, streams Streams) int {
	return newApp(streams).run(ctx, args)
}

func (a *App) run(ctx context.Context, args []string) int {
	a.bootstrap(args)
	root := a.rootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		a.reportError(err)
		return 1
	}
	return 0
}

// bootstrap pre-parses the global flags so the config and the method schema
// are known before the command tree is built. Errors are kept for later:
// commands that need no config still work with a broken one.
func (a *App) bootstrap(args []string) {
	pre := globalFlags{}
	fs := pflag.NewFlagSet("hubctl", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	pre.bind(fs)
	_ = fs.Parse(args)

	a.cfgPath = config.ResolveConfigPath(pre.config)
	a.cfg, a.cfgErr = config.LoadFrom(a.cfgPath)
	if a.cfgErr != nil {
		a.cfg = &config.Config{}
	}
	a.logger = newLogger(a.streams.Err, a.cfg.Log, pre.verbose)

	a.doc, a.source = a.loadSchema(pre)
	a.index = schema.NewIndex(a.doc)
	a.registry = commands.NewRegistry(a.index)
	a.preOutput = pre.output
}

// loadSchema picks the cached schema of the resolved profile, falling back
// to the schema bundled with the binary.
func (a *App) loadSchema(pre globalFlags) (*schema.Document, string) {
	if doc := a.cachedSchema(pre); doc != nil {
		return doc, sourceCache
	}
	doc, err := schema.Bundled()
	if err != nil {
		a.logger.Error("bundled schema is invalid", "err", err)
		return &schema.Document{Methods: map[string]*schema.Method{}}, sourceBundled
	}
	return doc, sourceBundled
}

func (a *App) cachedSchema(pre globalFlags) *schema.Document {
	if a.cfgErr != nil {
		return nil
	}
	path := filepath.Join(config.DataDir(a.cfgPath), schemacache.FileName)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	state, err := config.LoadState(config.ResolveStatePath(pre.state, a.cfgPath, a.cfg))
	if err != nil {
		return nil
	}
	profile, err := config.ResolveProfileName(pre.profile, a.cfg, state)
	if err != nil {
		return nil
	}

	cache, err := schemacache.Open(path)
	if err != nil {
		a.logger.Warn("schema cache unavailable", "path", path, "err", err)
		return nil
	}
	defer cache.Close()

	entry, err := cache.Load(profile)
	if err != nil {
		if !errors.Is(err, schemacache.ErrNotFound) {
			a.logger.Warn("cached schema unreadable", "profile", profile, "err", err)
		}
		return nil
	}
	a.logger.Debug("using cached schema", "profile", profile, "fetched_at", entry.FetchedAt)
	return entry.Document
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "hubctl",
		Short: "Command-line client for a smart-home hub",
		Long: `hubctl exposes a smart-home hub's RPC methods as commands, grouped by
category, and keeps the hub's scenarios in sync with editable files.

The method commands are generated from the hub's schema. Run
'hubctl schema refresh' to replace the bundled schema with the hub's own.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.prepare,
	}
	root.SetIn(a.streams.In)
	root.SetOut(a.streams.Out)
	root.SetErr(a.streams.Err)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &commands.UsageError{Err: err}
	})
	a.flags.bind(root.PersistentFlags())

	root.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Commands:"},
		&cobra.Group{ID: groupMethods, Title: "Hub Methods:"},
	)
	for _, cmd := range []*cobra.Command{
		a.profileCommand(),
		a.schemaCommand(),
		a.callCommand(),
		a.scenariosCommand(),
		a.versionCommand(),
	} {
		cmd.GroupID = groupCore
		root.AddCommand(cmd)
	}
	a.addMethodCommands(root)
	return root
}

// addMethodCommands registers one command per schema category. A category
// named like a built-in command is left out; its methods stay reachable
// through 'hubctl call'.
func (a *App) addMethodCommands(root *cobra.Command) {
	reserved := map[string]bool{"help": true, "completion": true}
	for _, cmd := range root.Commands() {
		reserved[cmd.Name()] = true
	}

	rejected := make([]string, 0, len(a.registry.Rejected))
	for name := range a.registry.Rejected {
		rejected = append(rejected, name)
	}
	slices.Sort(rejected)
	for _, name := range rejected {
		a.logger.Warn("method has no command", "method", name, "err", a.registry.Rejected[name])
	}

	runner := &commands.Runner{Open: a.connect, Render: a.renderResponse}
	for _, cat := range a.registry.Categories {
		if reserved[cat.Name] {
			a.logger.Warn("category shadowed by a built-in command", "category", cat.Name)
			a.shadowed = append(a.shadowed, cat.Name)
			continue
		}
		cmd := commands.GenerateCategoryCommand(cat, runner.Handler())
		cmd.GroupID = groupMethods
		root.AddCommand(cmd)
	}
}

// prepare builds the invocation options from the parsed global flags.
func (a *App) prepare(cmd *cobra.Command, _ []string) error {
	if a.cfgErr != nil && !needsConfig(cmd) {
		a.logger.Debug("ignoring config error", "err", a.cfgErr)
		a.cfg, a.cfgErr = &config.Config{}, nil
	}
	if a.cfgErr != nil {
		return &configError{err: a.cfgErr}
	}

	format, err := a.outputFormat()
	if err != nil {
		return &commands.UsageError{Err: err}
	}
	timeout, err := a.cfg.Timeout()
	if err != nil {
		return &configError{err: err}
	}
	ui.ConfigureTheme(a.cfg.UI.Accent)
	ui.ConfigureMarkdownCodeTheme(a.cfg.UI.CodeTheme)

	a.opts = &Options{
		ConfigPath: a.cfgPath,
		StatePath:  config.ResolveStatePath(a.flags.state, a.cfgPath, a.cfg),
		DataDir:    config.DataDir(a.cfgPath),
		Config:     a.cfg,
		Output:     format,
		Timeout:    timeout,
		Logger:     a.logger,
	}
	a.logger.Debug("invocation prepared",
		"command", cmd.CommandPath(),
		"config", a.opts.ConfigPath,
		"schema", a.source,
		"output", format)
	return nil
}

// needsConfig reports whether cmd reads the config. Help, completion and
// version work with a broken config file.
func needsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", "version", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

// outputFormat resolves the result format: --output, then the config
// default, then table. A command line cobra rejected before parsing
// --output still has the pre-parsed value.
func (a *App) outputFormat() (ui.Format, error) {
	raw := a.flags.output
	if raw == "" {
		raw = a.preOutput
	}
	if raw == "" && a.cfg != nil {
		raw = a.cfg.Output
	}
	if raw == "" {
		return ui.FormatTable, nil
	}
	return ui.ParseFormat(raw)
}

// resolveProfile picks the profile for explicit, which may be empty.
func (a *App) resolveProfile(explicit string) (string, error) {
	if explicit == "" {
		explicit = a.flags.profile
	}
	state, err := config.LoadState(a.opts.StatePath)
	if err != nil {
		return "", &configError{err: err}
	}
	return config.ResolveProfileName(explicit, a.opts.Config, state)
}

// hubConfig builds the client settings of a profile.
func (a *App) hubConfig(profile string) (hub.Config, error) {
	store := credentials.NewStore(a.opts.DataDir)
	creds, err := credentials.Resolve(a.opts.Config, store, profile)
	if err != nil {
		return hub.Config{}, fmt.Errorf("profile '%s': %w", profile, err)
	}
	return hub.Config{
		URL:         creds.WSURL,
		Email:       creds.Email,
		Password:    creds.Password,
		Serial:      creds.Serial,
		CallTimeout: a.opts.Timeout,
		Logger:      a.opts.Logger.With("component", "hub", "profile", profile),
	}, nil
}

// dial returns an unconnected client for a profile. The session is opened
// by the first call; the caller must Close the client.
func (a *App) dial(profile string) (*hub.Client, error) {
	cfg, err := a.hubConfig(profile)
	if err != nil {
		return nil, err
	}
	return hub.New(cfg), nil
}

// connect resolves a profile and returns its client.
func (a *App) connect(explicit string) (commands.Caller, error) {
	profile, err := a.resolveProfile(explicit)
	if err != nil {
		return nil, err
	}
	return a.dial(profile)
}

// withClient runs fn with a client for the selected profile and always
// closes it afterwards.
func (a *App) withClient(explicit string, fn func(client *hub.Client, profile string) error) error {
	profile, err := a.resolveProfile(explicit)
	if err != nil {
		return err
	}
	cfg, err := a.hubConfig(profile)
	if err != nil {
		return err
	}
	return hub.WithClient(cfg, func(client *hub.Client) error {
		return fn(client, profile)
	})
}

func (a *App) confirm(message string) bool {
	if a.opts != nil && a.opts.Output == ui.FormatJSON {
		return false
	}
	return a.prompter.confirm(message)
}
