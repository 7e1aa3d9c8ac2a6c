package verify

import (
	"context"

	"git.home.luguber.info/inful/protoimporter/internal/plan"
)

// Options selects the checks Unit runs after the static check.
type Options struct {
	ImportCheck  bool
	PythonExe    string
	MypyCmd      []string
	PyrightCmd   []string
	WorkspaceDir string
}

// OptionsFor derives the options configured for the plan's unit.
func OptionsFor(p *plan.Plan) Options {
	v := p.Unit.Verify
	return Options{
		ImportCheck: v.ImportCheck,
		PythonExe:   p.Unit.PythonExe,
		MypyCmd:     v.MypyCmd,
		PyrightCmd:  v.PyrightCmd,
	}
}

// Unit runs the static check and then every configured runtime check. The
// runtime checks are skipped when the static check already failed, since
// their failures would only repeat it.
func Unit(ctx context.Context, p *plan.Plan, opts Options) ([]Problem, error) {
	problems, err := Tree(p.OutRoot(), p)
	if err != nil {
		return problems, err
	}

	if opts.ImportCheck {
		found, err := ImportCheck(ctx, p, ImportCheckOptions{PythonExe: opts.PythonExe, WorkspaceDir: opts.WorkspaceDir})
		if err != nil {
			return problems, err
		}
		problems = append(problems, found...)
	}
	for _, c := range []struct {
		name string
		argv []string
	}{{"mypy", opts.MypyCmd}, {"pyright", opts.PyrightCmd}} {
		if err := ctx.Err(); err != nil {
			return problems, err
		}
		found, err := RunChecker(ctx, c.name, c.argv, p.OutRoot())
		if err != nil {
			return problems, err
		}
		problems = append(problems, found...)
	}
	return problems, ProblemsError(p.Unit.Name, problems)
}
