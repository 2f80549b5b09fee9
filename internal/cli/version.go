package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/hubctl/hubctl/internal/buildinfo"
)

type versionInfo struct {
	buildinfo.Info
	GOOS   string `json:"goos"`
	GOARCH string `json:"goarch"`
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show hubctl version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Info:   buildinfo.Current(),
				GOOS:   runtime.GOOS,
				GOARCH: runtime.GOARCH,
			}
			return a.emit(result{
				Data: info,
				Human: func(w io.Writer) {
					fmt.Fprintf(w, "hubctl %s\n", info.Version)
					if info.Commit != "" {
						fmt.Fprintf(w, "commit: %s\n", info.Commit)
					}
					if info.Date != "" {
						fmt.Fprintf(w, "date: %s\n", info.Date)
					}
					fmt.Fprintf(w, "go: %s\n", info.GoVersion)
					fmt.Fprintf(w, "platform: %s/%s\n", info.GOOS, info.GOARCH)
				},
			})
		},
	}
}
