package commands

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/protoimporter/internal/build"
	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/logfields"
	"git.home.luguber.info/inful/protoimporter/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	NoVerify  bool          `name:"no-verify" help:"Skip the verify stage"`
	Unit      []string      `short:"u" help:"Only build the named unit (repeatable)"`
	Generator string        `help:"Generator backend" enum:"protoc,fake" default:"protoc"`
	Debounce  time.Duration `help:"Quiet period before a rebuild starts" default:"300ms"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	units, err := build.SelectUnits(cfg, w.Unit)
	if err != nil {
		return err
	}
	inv := buildInvocation{
		Options:   build.BuildOptions{NoVerify: w.NoVerify, Units: w.Unit},
		Generator: w.Generator,
	}
	rebuild := func(ctx context.Context) error {
		_, err := runBuild(ctx, g, cfg, inv)
		return err
	}

	// A failing first build is reported but does not stop watching.
	if err := rebuild(ctx); err != nil {
		slog.Warn("Initial build failed", logfields.Error(err))
	}

	watcher := &watch.Watcher{
		Roots:    sourceRoots(units),
		Skip:     outputRoots(units),
		Debounce: w.Debounce,
		Rebuild:  rebuild,
	}
	return watcher.Run(ctx)
}

func sourceRoots(units []config.BuildUnit) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, u := range units {
		for _, r := range u.SourceRoots {
			if !seen[r] {
				seen[r] = true
				roots = append(roots, r)
			}
		}
	}
	return roots
}

func outputRoots(units []config.BuildUnit) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.Out)
	}
	return out
}
