package verify

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/protoimporter/internal/foundation/errors"
	"git.home.luguber.info/inful/protoimporter/internal/logfields"
)

// RunChecker runs an external type checker with outRoot appended to argv.
// A failing run becomes a single Problem carrying the checker output.
func RunChecker(ctx context.Context, name string, argv []string, outRoot string) ([]Problem, error) {
	if len(argv) == 0 {
		return nil, nil
	}
	exe, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryVerification, "type checker not found").
			WithContext("checker", name).WithContext("command", argv[0]).Build()
	}
	args := append(argv[1:len(argv):len(argv)], outRoot)
	slog.Debug("Running type checker", slog.String("checker", name), logfields.Command(strings.Join(argv, " ")))
	out, err := exec.CommandContext(ctx, exe, args...).CombinedOutput()
	if err == nil {
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if _, ok := err.(*exec.ExitError); !ok {
		return nil, errors.WrapError(err, errors.CategoryVerification, "type checker did not run").
			WithContext("checker", name).Build()
	}
	return []Problem{{Artifact: name, Reason: ReasonChecker, Detail: strings.TrimSpace(string(out))}}, nil
}
