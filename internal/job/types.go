// Package job implements the forge scheduling subject's unit of work: a
// named, ordered list of shell instructions, optionally run inside a
// container, with an optional skip-if precondition.
package job

import "fmt"

// Output is the tagged union a CommandRunner invocation resolves to.
type Output struct {
	kind   outputKind
	stdout string
	stderr string
}

type outputKind int

const (
	kindSuccess outputKind = iota
	kindJobError
	kindProcessError
)

// Success builds an Output representing a zero-exit instruction.
func Success(stdout, stderr string) Output {
	return Output{kind: kindSuccess, stdout: stdout, stderr: stderr}
}

// JobErrorOutput builds an Output for an instruction that ran to
// completion with a non-zero exit status.
func JobErrorOutput(stdout, stderr string) Output {
	return Output{kind: kindJobError, stdout: stdout, stderr: stderr}
}

// ProcessErrorOutput builds an Output for an instruction that could not
// be launched at all.
func ProcessErrorOutput(stderr string) Output {
	return Output{kind: kindProcessError, stderr: stderr}
}

func (o Output) Succeeded() bool { return o.kind == kindSuccess }
func (o Output) Stdout() string  { return o.stdout }
func (o Output) Stderr() string  { return o.stderr }

func (o Output) String() string {
	switch o.kind {
	case kindSuccess:
		return fmt.Sprintf("Success(stdout=%dB, stderr=%dB)", len(o.stdout), len(o.stderr))
	case kindJobError:
		return fmt.Sprintf("JobError(stdout=%dB, stderr=%dB)", len(o.stdout), len(o.stderr))
	default:
		return fmt.Sprintf("ProcessError(%s)", o.stderr)
	}
}

// CommandRunner is the contract every Job variant executes instructions
// through. precondition is expected to be side-effect-free and is used
// only to evaluate skip-if predicates; it is implemented as a wholly
// separate invocation from run — the two never share a shell session.
type CommandRunner interface {
	Run(command string) Output
	Precondition(command string) Output
}

// Desc is the configuration-side description of a job: immutable once
// loaded, and safe to share by reference across the lifetime of a run.
type Desc struct {
	Name             string   `json:"name"`
	Script           []string `json:"script"`
	Image            string   `json:"image,omitempty"` // empty means a plain (non-containerized) job
	Group            string   `json:"group,omitempty"`
	SkipIf           string   `json:"skip_if,omitempty"`
	EnvNeeds         []string `json:"env_needs,omitempty"` // keys this job's instructions expect forwarded from the resolved environment
	MemoryLimitBytes int64    `json:"memory_limit_bytes,omitempty"` // 0 means unconstrained
}

func (d Desc) Containerized() bool {
	return d.Image != ""
}

// Edge is a directed constraint: Blocker must terminate successfully
// before Blocked may start.
type Edge struct {
	Blocker string `json:"blocker"`
	Blocked string `json:"blocked"`
}

// Payload is the configuration-side input to a run: the job list, the
// constraint edges between them, optional display preferences, and
// optional env-text for the EnvResolver. Display preferences and config
// provenance are consumed here, not parsed — format detection,
// versioning, and migration all live outside this module.
type Payload struct {
	Jobs        []Desc        `json:"jobs"`
	Constraints []Edge        `json:"constraints,omitempty"`
	Groups      []string      `json:"groups,omitempty"`
	Env         string        `json:"env,omitempty"`
	Display     DisplayConfig `json:"display,omitempty"`
}

// DisplayConfig carries the presentation preferences from spec.md §6.
// They are decoded with the Payload, but forge's core does not read them
// and does not pass them to a Display sink; the terminal widgets
// themselves are an external collaborator.
type DisplayConfig struct {
	IconOK        string      `json:"icon_ok,omitempty"`
	IconKO        string      `json:"icon_ko,omitempty"`
	IconCancelled string      `json:"icon_cancelled,omitempty"`
	SpinnerFrames []string    `json:"spinner_frames,omitempty"`
	FramesPerTick int         `json:"frames_per_tick,omitempty"`
	RunningMode   RunningMode `json:"running_mode,omitempty"`
	FinalMode     FinalMode   `json:"final_mode,omitempty"`
}

type RunningMode int

const (
	RunningSilent RunningMode = iota
	RunningSequence
	RunningSummary
)

type FinalMode int

const (
	FinalFull FinalMode = iota
	FinalSilent
	FinalInteractive
)
