package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tunefolder/tunefolder/internal/audio"
	"github.com/tunefolder/tunefolder/internal/config"
	"github.com/tunefolder/tunefolder/internal/descriptor"
	"github.com/tunefolder/tunefolder/internal/events"
	"github.com/tunefolder/tunefolder/internal/ipc"
	"github.com/tunefolder/tunefolder/internal/media"
	"github.com/tunefolder/tunefolder/internal/metrics"
	"github.com/tunefolder/tunefolder/internal/playlist"
	"github.com/tunefolder/tunefolder/internal/state"
	"github.com/tunefolder/tunefolder/internal/transport"
)

// serveFlags configure the daemon
type serveFlags struct {
	SocketPath string
	NoMedia    bool
}

func (f *serveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.SocketPath, "socket", "", "IPC socket path (default: /tmp/tunefolder-<uid>.sock)")
	cmd.Flags().BoolVar(&f.NoMedia, "no-media", false, "Do not register with the desktop media controls")
}

func serveCmd(flags *globalFlags) *cobra.Command {
	serve := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the player daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, serve)
		},
	}
	serve.register(cmd)
	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, serve *serveFlags) error {
	log.Printf("tunefolder %s starting...", appVersion())

	configMgr, err := loadConfig(flags)
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	if err := os.MkdirAll(cfg.PlaylistsDir, 0755); err != nil {
		return fmt.Errorf("failed to create playlists directory: %w", err)
	}

	backend, err := audio.New(audio.Options{
		Name:         cfg.Audio.Backend,
		SampleRate:   cfg.Audio.SampleRate,
		BufferSizeMs: cfg.Audio.BufferSizeMs,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}

	bus := events.NewBus()
	ctrl := transport.New(
		playlist.NewSynchronizer(descriptor.NewStore()),
		backend,
		newProber(),
		bus,
		transport.Options{
			Root:         cfg.PlaylistsDir,
			TickInterval: cfg.Audio.TickInterval(),
			Loop:         cfg.Behavior.LoopMode,
			Shuffle:      cfg.Behavior.Shuffle,
			Volume:       cfg.Audio.DefaultVolume,
			Speed:        cfg.Audio.DefaultSpeed,
		},
	)
	defer ctrl.Close()

	if err := ctrl.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to scan %s: %w", cfg.PlaylistsDir, err)
	}

	stateStore := state.NewStore(configMgr.Dir())
	restoreState(ctrl, stateStore, cfg)
	defer saveState(ctrl, stateStore)

	if cfg.Behavior.RememberPosition {
		bus.Subscribe(events.ListenerFunc(func(ev events.Event) {
			if ev.Kind() == events.KindTrackStarted {
				saveState(ctrl, stateStore)
			}
		}))
	}

	if !serve.NoMedia {
		closeMedia := startMedia(ctrl, bus)
		defer closeMedia()
	}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[%s] Stopped: %v", name, err)
			}
		}()
	}

	run("TRANSPORT", ctrl.Run)
	if cfg.Behavior.WatchFolders {
		run("WATCH", ctrl.Watch)
	}
	if cfg.MetricsAddr != "" {
		run("METRICS", func(ctx context.Context) error {
			return metrics.Serve(ctx, cfg.MetricsAddr)
		})
	}

	socketPath := serve.SocketPath
	if socketPath == "" {
		socketPath = ipc.DefaultSocketPath()
	}
	server := ipc.NewServer(socketPath, ctrl)
	err = server.Start(ctx)

	wg.Wait()
	if err != nil {
		return fmt.Errorf("IPC server error: %w", err)
	}
	return nil
}

// restoreState resumes the last session. The track is loaded without
// playing unless behavior.resumeOnStart is set.
func restoreState(ctrl *transport.Controller, store *state.Store, cfg *config.Config) {
	st, err := store.Load()
	if err != nil {
		log.Printf("[STATE] Warning: failed to load saved state: %v", err)
		return
	}
	if st == nil {
		return
	}
	if !cfg.Behavior.RememberPosition {
		st.Position = 0
	}
	if err := ctrl.Resume(st, cfg.Behavior.ResumeOnStart); err != nil {
		log.Printf("[STATE] Warning: failed to resume %s: %v", st.PlaylistID, err)
	}
}

func saveState(ctrl *transport.Controller, store *state.Store) {
	st := ctrl.Snapshot()
	if st == nil {
		return
	}
	if err := store.Save(st); err != nil {
		log.Printf("[STATE] Warning: failed to save state: %v", err)
	}
}

// startMedia registers with the desktop media controls. Failure is not
// fatal; the daemon runs without them.
func startMedia(ctrl *transport.Controller, bus *events.Bus) func() {
	session, err := media.NewSession()
	if err != nil {
		log.Printf("[MEDIA] Warning: failed to initialize media session: %v", err)
		log.Printf("[MEDIA] Continuing without OS media integration")
		return func() {}
	}
	log.Printf("[MEDIA] Media session initialized successfully")

	unsubscribe := bus.Subscribe(media.NewBridge(session, ctrl))
	return func() {
		unsubscribe()
		session.Close()
	}
}
