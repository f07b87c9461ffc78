package command

import (
	"context"
	"fmt"

	"github.com/pipeforge/forge/internal/config"
	"github.com/pipeforge/forge/internal/display"
	"github.com/pipeforge/forge/internal/engine"
	"github.com/pipeforge/forge/internal/job"
	"github.com/pipeforge/forge/internal/job/resourcelimit"
	"go.uber.org/zap"
)

const autocompleteScript = `
_forge_complete() {
    local cur="${COMP_WORDS[COMP_CWORD]}"
    COMPREPLY=( $(compgen -W "ci autocomplete config --config --quiet --help --version" -- "$cur") )
}
complete -F _forge_complete forge
`

// Run dispatches cmd to its concrete behavior and returns the
// completed run's tracker when cmd is CI, so the caller can map
// tracker.HasFailed() to a process exit code.
func Run(ctx context.Context, log *zap.SugaredLogger, cmd *Command, settings engine.Settings) (*engine.Tracker, error) {
	switch cmd.SubCommand {
	case CI:
		return runCI(ctx, log, cmd, settings)
	case Autocomplete:
		fmt.Print(autocompleteScript)
		return nil, nil
	case ConfigMigrate:
		return nil, fmt.Errorf("config migrate: not supported by this engine")
	default:
		return nil, fmt.Errorf("unsupported subcommand: %v", cmd.SubCommand)
	}
}

func runCI(ctx context.Context, log *zap.SugaredLogger, cmd *Command, settings engine.Settings) (*engine.Tracker, error) {
	payload, err := config.Load(cmd.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	runner := job.NewShellRunner(".")

	var sink display.Sink = display.NewLog(log)
	if cmd.Quiet {
		sink = display.Noop{}
	}

	var opts []engine.Option
	resources := resourcelimit.NewManager()
	if err := resources.Init(); err != nil {
		log.Warnw("cgroup init failed, plain-job memory limits will be unenforced", "error", err)
	} else {
		opts = append(opts, engine.WithResourceManager(resources))
	}

	exec := engine.New(log, runner, sink, settings, opts...)
	log.Infow("starting run", "run_id", exec.RunID(), "jobs", len(payload.Jobs))

	tracker, err := exec.Run(ctx, *payload)
	if err != nil {
		return tracker, fmt.Errorf("running: %w", err)
	}
	return tracker, nil
}
