package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sk2233/spinal"
	"github.com/sk2233/spinal/pose"
	"github.com/sk2233/spinal/skeleton"
)

var watchCmd = &cobra.Command{
	Use:   "watch <skeleton>",
	Short: "Play an animation and reload the skeleton when it changes",
	Long: `Plays --anim at the configured fps, logging fired events, and re-decodes
the skeleton whenever the file is written. A reload keeps the playhead, so an
exported tweak shows up at the same point of the animation.

Press Ctrl+C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("anim", "", "animation to play")
	watchCmd.Flags().String("skin", "", "skin to activate (default from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	anim, _ := cmd.Flags().GetString("anim")
	skin, _ := cmd.Flags().GetString("skin")
	if skin == "" {
		skin = cfg.Skin
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	p, err := newPlayer(args[0], anim, skin, logger)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer watcher.Close()
	// 监听目录，编辑器保存时常常是重命名替换
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("watch: add %s: %w", filepath.Dir(p.path), err)
	}

	frame := time.Duration(float64(time.Second) / cfg.FPS)
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	logger.Info().Str("path", p.path).Str("animation", anim).Dur("frame", frame).Msg("watching skeleton")

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending = time.After(cfg.Watch.Debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		case <-pending:
			pending = nil
			p.reload()
		case <-ticker.C:
			p.step(float32(frame.Seconds()))
		}
	}
}

// player owns one skeleton and the pose state animating it.
type player struct {
	path  string
	anim  string
	skin  string
	log   zerolog.Logger
	skel  *skeleton.Skeleton
	state *pose.State
}

func newPlayer(path, anim, skin string, log zerolog.Logger) (*player, error) {
	skel, err := spinal.Load(path, spinal.WithLogger(log))
	if err != nil {
		return nil, err
	}
	state := pose.NewState(pose.WithLogger(log), pose.WithLoop(cfg.LoopMode))
	if err := state.SetSkin(skel, skin); err != nil {
		return nil, fmt.Errorf("skin: %w", err)
	}
	if err := state.SetActiveAnimation(skel, anim); err != nil {
		return nil, fmt.Errorf("animation: %w", err)
	}
	return &player{
		path:  filepath.Clean(path),
		anim:  anim,
		skin:  skin,
		log:   log,
		skel:  skel,
		state: state,
	}, nil
}

// reload re-decodes the skeleton, a file that fails to decode keeps the old one.
func (p *player) reload() bool {
	skel, err := spinal.Load(p.path, spinal.WithLogger(p.log))
	if err != nil {
		p.log.Error().Err(err).Str("path", p.path).Msg("reload failed, keeping previous skeleton")
		return false
	}
	if p.anim != "" && skel.FindAnimation(p.anim) == nil {
		p.log.Error().Str("animation", p.anim).Msg("reload dropped the animation, keeping previous skeleton")
		return false
	}
	if err := p.state.SetSkin(skel, p.skin); err != nil {
		p.log.Warn().Err(err).Msg("skin missing after reload, using default skin")
		_ = p.state.SetSkin(skel, "")
	}
	p.skel = skel
	snapshot := p.state.Pose(skel)
	p.log.Info().
		Int("bones", len(snapshot.Bones)).
		Int("slots", len(snapshot.Slots)).
		Float32("time", snapshot.Time).
		Msg("skeleton reloaded")
	return true
}

func (p *player) step(delta float32) pose.Snapshot {
	p.state.AdvanceTime(delta)
	snapshot := p.state.Pose(p.skel)
	for _, item := range snapshot.Events {
		p.log.Info().
			Str("event", item.Name).
			Float32("at", item.Time).
			Int32("int", item.Int).
			Float32("float", item.Float).
			Str("string", item.String).
			Msg("event fired")
	}
	p.log.Trace().Float32("time", snapshot.Time).Msg("frame")
	return snapshot
}
