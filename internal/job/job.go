package job

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Emitter is how a running Job reports lifecycle events. The Executor
// supplies an implementation backed by the shared event channel.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to an Emitter.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(e Event) { f(e) }

// Job runs one Desc's instructions against a CommandRunner, emitting
// Progress events as it goes. Plain and containerized jobs share this
// single type — the only difference is whether instructions are
// wrapped for docker before being handed to the runner, matching
// spec.md §4.3's "tagged union with a start method per variant", here
// collapsed to one type with an internal branch since Go has no sum
// types to speak of and both variants' Start bodies are identical
// apart from instruction wrapping.
type Job struct {
	desc        Desc
	resolvedEnv map[string][]string
	tailBuffer  *OutputStreamer
}

// New constructs a Job ready to Start. resolvedEnv is the full env
// resolved by EnvResolver.Resolve; only the keys the job declares via
// Desc.EnvNeeds are ever forwarded into a container's --env flags.
func New(desc Desc, resolvedEnv map[string][]string) *Job {
	return &Job{desc: desc, resolvedEnv: resolvedEnv, tailBuffer: NewOutputStreamer()}
}

func (j *Job) Name() string { return j.desc.Name }

// Desc returns the job's configuration-side description.
func (j *Job) Desc() Desc { return j.desc }

// Tail returns a byte stream of the job's output from its first
// instruction on: for each instruction, a "$ <command>" line followed by
// that instruction's stdout and stderr, appended only once the
// instruction has finished. Output of a still-running instruction is not
// visible. The stream closes once the job has finished and the reader has
// caught up. This is a forge supplement to spec.md (SPEC_FULL.md §2.2) —
// no Progress/Output semantics depend on it being consumed.
func (j *Job) Tail(ctx context.Context) <-chan []byte {
	return j.tailBuffer.NewStream(ctx)
}

// Start runs the job to completion, emitting events on emitter.
func (j *Job) Start(runner CommandRunner, emitter Emitter) {
	if j.desc.SkipIf != "" {
		if runner.Precondition(j.desc.SkipIf).Succeeded() {
			emitter.Emit(NewEvent(j.desc.Name, Skipped()))
			emitter.Emit(NewEvent(j.desc.Name, Terminated(true)))
			j.tailBuffer.CloseWriter()
			return
		}
	}

	succeeded := true
	for _, instruction := range j.desc.Script {
		emitter.Emit(NewEvent(j.desc.Name, Started(instruction)))

		wrapped := j.wrap(instruction)
		fmt.Fprintf(j.tailBuffer, "$ %s\n", wrapped)
		output := runner.Run(wrapped)
		fmt.Fprint(j.tailBuffer, output.Stdout())
		fmt.Fprint(j.tailBuffer, output.Stderr())

		succeeded = output.Succeeded()
		emitter.Emit(NewEvent(j.desc.Name, Partial(instruction, output)))
		if !succeeded {
			break
		}
	}
	emitter.Emit(NewEvent(j.desc.Name, Terminated(succeeded)))
	j.tailBuffer.CloseWriter()
}

// wrap returns the instruction verbatim for plain jobs, or wrapped in a
// docker invocation for containerized ones, per spec.md §4.3.
func (j *Job) wrap(instruction string) string {
	if !j.desc.Containerized() {
		return instruction
	}

	var b strings.Builder
	b.WriteString("docker run --rm --user \"$USER_ID:$GROUP_ID\" --volume \"$PWD:$PWD\" --workdir \"$PWD\"")

	if j.desc.MemoryLimitBytes > 0 {
		fmt.Fprintf(&b, " --memory %d", j.desc.MemoryLimitBytes)
	}

	forwarded := j.forwardedEnvKeys()
	for _, key := range forwarded {
		fmt.Fprintf(&b, " --env \"%s=$%s\"", key, key)
	}

	fmt.Fprintf(&b, " %s %s", j.desc.Image, instruction)
	return b.String()
}

// forwardedEnvKeys returns the intersection of the job's declared env
// needs and the resolved environment's keys, sorted for determinism.
func (j *Job) forwardedEnvKeys() []string {
	var keys []string
	for _, need := range j.desc.EnvNeeds {
		if _, ok := j.resolvedEnv[need]; ok {
			keys = append(keys, need)
		}
	}
	sort.Strings(keys)
	return keys
}
