package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/protoimporter/internal/build"
	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Yes  bool     `short:"y" help:"Confirm deletion of the output roots"`
	Unit []string `short:"u" help:"Only clean the named unit (repeatable)"`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	units, err := build.SelectUnits(cfg, c.Unit)
	if err != nil {
		return err
	}
	if !c.Yes {
		for _, u := range units {
			_, _ = fmt.Fprintf(g.out(), "would remove %s\n", u.Out)
		}
		return errors.ValidationError("refusing to delete output roots without --yes").Build()
	}
	for _, u := range units {
		if err := os.RemoveAll(u.Out); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "remove output root").
				WithContext("unit", u.Name).WithContext("out", u.Out).Build()
		}
		_, _ = fmt.Fprintf(g.out(), "removed %s\n", u.Out)
	}
	return nil
}
