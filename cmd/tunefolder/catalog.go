package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/tunefolder/tunefolder/internal/atomicfile"
	"github.com/tunefolder/tunefolder/internal/descriptor"
	"github.com/tunefolder/tunefolder/internal/playlist"
	"github.com/tunefolder/tunefolder/internal/scanner"
)

func syncCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Synchronize every playlist folder with its playlist.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			syncer := playlist.NewSynchronizer(descriptor.NewStore())
			results, err := syncer.SyncAll(cfg.Get().PlaylistsDir)
			if err != nil {
				return err
			}
			renderSync(cmd.OutOrStdout(), results)

			failed := lo.CountBy(results, func(r *playlist.Result) bool { return r.Err != nil })
			if failed > 0 {
				return fmt.Errorf("%d playlist(s) could not be saved", failed)
			}
			return nil
		},
	}
}

// renderSync prints one row per playlist
func renderSync(w io.Writer, results []*playlist.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Playlist", "Name", "Tracks", "Added", "Pruned", "Status"})

	for _, r := range results {
		status := "ok"
		switch {
		case r.Err != nil:
			status = "error: " + r.Err.Error()
		case r.BackupPath != "":
			status = "rebuilt, backup " + filepath.Base(r.BackupPath)
		case r.Saved:
			status = "saved"
		}
		t.AppendRow(table.Row{
			r.Playlist.ID,
			r.Playlist.DisplayName,
			r.Playlist.Len(),
			len(r.Added),
			len(r.Pruned),
			status,
		})
	}
	t.AppendFooter(table.Row{"", "", lo.SumBy(results, func(r *playlist.Result) int { return r.Playlist.Len() })})
	t.Render()
}

// loadPlaylist syncs one playlist folder below the configured root
func loadPlaylist(flags *globalFlags, id string) (*playlist.Playlist, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("invalid playlist name %q", id)
	}

	res, err := playlist.NewSynchronizer(descriptor.NewStore()).Sync(filepath.Join(cfg.Get().PlaylistsDir, id))
	if res == nil {
		return nil, err
	}
	if res.Missing {
		return nil, fmt.Errorf("playlist %q not found in %s", id, cfg.Get().PlaylistsDir)
	}
	var perr *descriptor.PersistenceError
	if err != nil && !errors.As(err, &perr) {
		return nil, err
	}
	return res.Playlist, nil
}

// probeAll fills in track durations
func probeAll(p *playlist.Playlist, prober scanner.Prober) {
	for _, t := range p.Tracks {
		if d, err := prober.ProbeDuration(t.Path); err == nil {
			t.Duration = d
		}
	}
}

func exportCmd(flags *globalFlags) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export <playlist>",
		Short: "Export a playlist as M3U or PLS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := playlist.ParseFormat(format)
			if err != nil {
				return err
			}
			p, err := loadPlaylist(flags, args[0])
			if err != nil {
				return err
			}
			probeAll(p, newProber())

			if out == "" {
				return playlist.Export(cmd.OutOrStdout(), p, f)
			}
			var buf strings.Builder
			if err := playlist.Export(&buf, p, f); err != nil {
				return err
			}
			if err := atomicfile.WriteFile(out, []byte(buf.String()), 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d tracks to %s\n", p.Len(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "m3u", "Export format: m3u or pls")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to a file instead of stdout")
	return cmd
}

func statsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <playlist>",
		Short: "Show track count, size and formats of a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPlaylist(flags, args[0])
			if err != nil {
				return err
			}
			probeAll(p, newProber())
			renderStats(cmd.OutOrStdout(), p, playlist.ComputeStats(p))
			return nil
		},
	}
}

func renderStats(w io.Writer, p *playlist.Playlist, st playlist.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(p.DisplayName)

	t.AppendRow(table.Row{"Tracks", st.TrackCount})
	t.AppendRow(table.Row{"Size", fmt.Sprintf("%.1f MB", st.SizeMB)})
	t.AppendRow(table.Row{"Duration", formatDuration(st.TotalDuration)})
	t.AppendSeparator()

	formats := lo.Keys(st.Formats)
	sort.Strings(formats)
	for _, f := range formats {
		t.AppendRow(table.Row{"." + f, st.Formats[f]})
	}
	t.Render()
}

func formatDuration(seconds float64) string {
	s := int(seconds + 0.5)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s%3600/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
