package commands

import "git.home.luguber.info/inful/protoimporter/internal/build"

// CheckCmd implements the 'check' command: resolve every unit and verify what
// is already on disk.
type CheckCmd struct {
	Unit   []string `short:"u" help:"Only check the named unit (repeatable)"`
	Report string   `help:"Write a JSON report to this file" type:"path"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	_, err = runBuild(ctx, g, cfg, buildInvocation{
		Options:    build.BuildOptions{CheckOnly: true, Units: c.Unit},
		ReportPath: c.Report,
	})
	return err
}
