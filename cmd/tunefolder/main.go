// Package main is the entry point for tunefolder.
// tunefolder plays folders of audio files as playlists and is controlled
// over a unix socket and the desktop media keys.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tunefolder/tunefolder/internal/audio"
	"github.com/tunefolder/tunefolder/internal/config"
	"github.com/tunefolder/tunefolder/internal/logx"
	"github.com/tunefolder/tunefolder/internal/scanner"
)

// Version is set at build time via ldflags
var Version = "dev"

// globalFlags are shared by every subcommand
type globalFlags struct {
	ConfigDir string
	Verbose   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	serve := &serveFlags{}

	root := &cobra.Command{
		Use:           "tunefolder",
		Short:         "Play folders of audio files as playlists",
		Version:       appVersion(),
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logx.SetVerbose(flags.Verbose || logx.DebugEnabled())
		},
		// Running without a subcommand starts the daemon
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, serve)
		},
	}

	root.PersistentFlags().StringVar(&flags.ConfigDir, "config", "", "Configuration directory (default: ~/.config/tunefolder)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")
	serve.register(root)

	root.AddCommand(
		serveCmd(flags),
		syncCmd(flags),
		exportCmd(flags),
		statsCmd(flags),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tunefolder %s\n", appVersion())
		},
	}
}

func appVersion() string {
	if Version != "dev" {
		return Version
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi.Main.Version == "" || bi.Main.Version == "(devel)" {
		return Version
	}
	return bi.Main.Version
}

// loadConfig reads the configuration from the flag's directory or the default
func loadConfig(flags *globalFlags) (*config.Manager, error) {
	dir := flags.ConfigDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultDir(); err != nil {
			return nil, err
		}
	}

	mgr := config.NewManager(dir)
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logx.Debugf("[CONFIG] Loaded %s", mgr.GetPath())
	return mgr, nil
}

// newProber probes with ffprobe when it is installed and the pure-Go
// decoders otherwise, caching results for the process lifetime
func newProber() scanner.Prober {
	chain := scanner.ChainProber{}
	if ffprobe, err := scanner.NewFFprobe(); err == nil {
		chain = append(chain, ffprobe)
	} else {
		log.Printf("[AUDIO] ffprobe not found, durations come from the built-in decoders")
	}
	chain = append(chain, audio.BeepProber{})
	return scanner.NewCachedProber(chain)
}
