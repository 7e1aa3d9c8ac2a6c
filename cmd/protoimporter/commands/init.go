package commands

import (
	"fmt"

	"git.home.luguber.info/inful/protoimporter/internal/config"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	return RunInit(g, root.Config, i.Force)
}

func RunInit(g *Global, configPath string, force bool) error {
	w := g.out()
	_, _ = fmt.Fprintf(w, "Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		_, _ = fmt.Fprintln(w, "Initialization failed")
		return errors.WrapError(err, errors.CategoryValidation, "init failed").Build()
	}
	_, _ = fmt.Fprintln(w, "initialized successfully")
	return nil
}
