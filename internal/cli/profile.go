package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hubctl/hubctl/internal/config"
	"github.com/hubctl/hubctl/internal/credentials"
	"github.com/hubctl/hubctl/internal/ui"
)

type profileInfo struct {
	Name        string `json:"name"`
	WSURL       string `json:"ws_url"`
	Email       string `json:"email,omitempty"`
	Serial      string `json:"serial,omitempty"`
	Active      bool   `json:"active"`
	Default     bool   `json:"default"`
	HasPassword bool   `json:"has_password"`
}

func (a *App) profileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage hub profiles",
		Long: `Profiles hold the connection settings of one hub. The URL, email and
serial live in config.toml; the password is kept encrypted next to it.`,
		Args: cobra.NoArgs,
	}
	cmd.AddCommand(
		a.profileAddCommand(),
		a.profileListCommand(),
		a.profileShowCommand(),
		a.profileUseCommand(),
		a.profileRemoveCommand(),
	)
	return cmd
}

func (a *App) profileAddCommand() *cobra.Command {
	var url, email, serial, passwordFile string
	var makeDefault bool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or update a hub profile",
		Example: `  hubctl profile add home --url ws://192.168.1.20/ws --email me@example.com \
    --serial A1B2C3 --password-file ~/.hub-password
  echo "$HUB_PASSWORD" | hubctl profile add home --url ws://hub.local/ws --password-file -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return &inputError{msg: "profile name is required"}
			}

			cfg := a.opts.Config
			existing, updating := cfg.Profiles[name]
			if url == "" {
				url = existing.WSURL
			}
			if url == "" {
				return &inputError{msg: "--url is required for a new profile"}
			}
			profile := config.Profile{WSURL: url, Email: existing.Email, Serial: existing.Serial}
			if cmd.Flags().Changed("email") {
				profile.Email = email
			}
			if cmd.Flags().Changed("serial") {
				profile.Serial = serial
			}

			if cfg.Profiles == nil {
				cfg.Profiles = make(map[string]config.Profile)
			}
			cfg.Profiles[name] = profile
			if makeDefault || cfg.DefaultProfile == "" {
				cfg.DefaultProfile = name
			}
			if err := cfg.Validate(); err != nil {
				delete(cfg.Profiles, name)
				if updating {
					cfg.Profiles[name] = existing
				}
				return &inputError{msg: err.Error()}
			}

			if passwordFile != "" {
				password, err := credentials.ReadPasswordFile(passwordFile, a.streams.In)
				if err != nil {
					return &inputError{msg: err.Error()}
				}
				if err := a.credentials().SetPassword(name, password); err != nil {
					return err
				}
			}
			if err := config.SaveTo(a.opts.ConfigPath, cfg); err != nil {
				return err
			}
			a.opts.Logger.Debug("profile saved", "profile", name, "config", a.opts.ConfigPath)

			info, err := a.profileInfo(name)
			if err != nil {
				return err
			}
			verb := "Added"
			if updating {
				verb = "Updated"
			}
			return a.emit(result{
				Data: info,
				Human: func(w io.Writer) {
					fmt.Fprintln(w, ui.Successf("%s profile %s", verb, ui.Bold.Render(name)))
					if !info.HasPassword {
						fmt.Fprintln(w, ui.Hint("No password stored yet: rerun with --password-file"))
					}
				},
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Hub websocket URL (ws:// or wss://)")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&serial, "serial", "", "Hub serial number")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "Read the password from a file, or '-' for stdin")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "Make this the default profile")
	return cmd
}

func (a *App) profileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := a.opts.Config.ProfileNames()
			infos := make([]profileInfo, 0, len(names))
			for _, name := range names {
				info, err := a.profileInfo(name)
				if err != nil {
					return err
				}
				infos = append(infos, info)
			}
			return a.emit(result{
				Data: infos,
				Meta: &Meta{Count: len(infos)},
				Human: func(w io.Writer) {
					if len(infos) == 0 {
						fmt.Fprintln(w, ui.Hint("No profiles configured. Run 'hubctl profile add <name> --url ...'"))
						return
					}
					table := ui.NewTable(3)
					for _, info := range infos {
						marker := " "
						if info.Active {
							marker = ui.Accent.Render("*")
						}
						name := info.Name
						if info.Default {
							name += ui.Muted.Render(" (default)")
						}
						table.AddRow(marker+" "+name, info.WSURL, passwordLabel(info.HasPassword))
					}
					fmt.Fprint(w, table.String())
				},
			})
		},
	}
}

func (a *App) profileShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show a profile (default: the selected one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit := ""
			if len(args) == 1 {
				explicit = args[0]
			}
			name, err := a.resolveProfile(explicit)
			if err != nil {
				return err
			}
			info, err := a.profileInfo(name)
			if err != nil {
				return err
			}
			return a.emit(result{
				Data: info,
				Human: func(w io.Writer) {
					fmt.Fprintln(w, ui.Header(info.Name))
					table := ui.NewTable(2)
					table.AddRow("url", info.WSURL)
					table.AddRow("email", info.Email)
					table.AddRow("serial", info.Serial)
					table.AddRow("password", passwordLabel(info.HasPassword))
					table.AddRow("active", fmt.Sprint(info.Active))
					table.AddRow("default", fmt.Sprint(info.Default))
					fmt.Fprint(w, table.String())
				},
			})
		},
	}
}

func (a *App) profileUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Select the active profile",
		Long:  "Records the profile as active in state.toml. --profile still overrides it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if _, ok := a.opts.Config.Profiles[name]; !ok {
				return &config.ProfileNotFoundError{Name: name}
			}
			if err := config.UseProfile(a.opts.StatePath, name); err != nil {
				return &configError{err: err}
			}
			return a.emit(result{
				Data: map[string]string{"active_profile": name, "state_file": a.opts.StatePath},
				Human: func(w io.Writer) {
					fmt.Fprintln(w, ui.Successf("Active profile is now %s", ui.Bold.Render(name)))
				},
			})
		},
	}
}

func (a *App) profileRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a profile and its stored password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			cfg := a.opts.Config
			if _, ok := cfg.Profiles[name]; !ok {
				return &config.ProfileNotFoundError{Name: name}
			}
			delete(cfg.Profiles, name)
			if cfg.DefaultProfile == name {
				cfg.DefaultProfile = ""
			}
			if err := config.SaveTo(a.opts.ConfigPath, cfg); err != nil {
				return err
			}
			if err := a.credentials().Remove(name); err != nil {
				return err
			}

			wasActive, err := config.ForgetProfile(a.opts.StatePath, name)
			if err != nil {
				return &configError{err: err}
			}
			return a.emit(result{
				Data: map[string]interface{}{"removed": name, "was_active": wasActive},
				Human: func(w io.Writer) {
					fmt.Fprintln(w, ui.Successf("Removed profile %s", ui.Bold.Render(name)))
					if wasActive {
						fmt.Fprintln(w, ui.Hint("No profile is active now; run 'hubctl profile use' to pick one"))
					}
				},
			})
		},
	}
}

func (a *App) credentials() *credentials.Store {
	return credentials.NewStore(a.opts.DataDir)
}

func (a *App) profileInfo(name string) (profileInfo, error) {
	cfg := a.opts.Config
	p, ok := cfg.Profiles[name]
	if !ok {
		return profileInfo{}, &config.ProfileNotFoundError{Name: name}
	}
	state, err := config.LoadState(a.opts.StatePath)
	if err != nil {
		return profileInfo{}, &configError{err: err}
	}
	stored, err := a.credentials().Profiles()
	if err != nil {
		return profileInfo{}, err
	}
	return profileInfo{
		Name:        name,
		WSURL:       p.WSURL,
		Email:       p.Email,
		Serial:      p.Serial,
		Active:      state.ActiveProfile == name,
		Default:     cfg.DefaultProfile == name,
		HasPassword: slices.Contains(stored, name),
	}, nil
}

func passwordLabel(stored bool) string {
	if stored {
		return "password stored"
	}
	return ui.Muted.Render("no password")
}
