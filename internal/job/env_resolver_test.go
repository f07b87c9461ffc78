package job

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func TestParseEnvIntoMap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  map[string][]string
	}{
		{
			name:  "multiline value",
			input: "KEY1=value\nwith\nnew\nlines\nKEY2=value",
			want: map[string][]string{
				"KEY1": {"value", "with", "new", "lines"},
				"KEY2": {"value"},
			},
		},
		{
			name:  "empty value",
			input: "KEY1=\nKEY2=value",
			want: map[string][]string{
				"KEY1": {},
				"KEY2": {"value"},
			},
		},
		{
			name:  "single key single value",
			input: "ONLY=one",
			want: map[string][]string{
				"ONLY": {"one"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ParseEnvIntoMap(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// fakeRunner lets tests script a CommandRunner's responses without
// shelling out.
type fakeRunner struct {
	runOutput          Output
	preconditionOutput Output
}

func (f *fakeRunner) Run(string) Output          { return f.runOutput }
func (f *fakeRunner) Precondition(string) Output { return f.preconditionOutput }

func newTestLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()
	return zap.NewNop().Sugar()
}

func TestEnvResolver_Resolve_FiltersToDeclaredKeys(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		runOutput: Success("USER_ID=1000\nGROUP_ID=1000\nFOO=bar\n", ""),
	}
	r := NewEnvResolver(newTestLogger(t))

	got, err := r.Resolve(runner, "FOO=bar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string][]string{
		"USER_ID":  {"1000"},
		"GROUP_ID": {"1000"},
		"FOO":      {"bar"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEnvResolver_Resolve_ProbeFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		runOutput: JobErrorOutput("", "boom"),
	}
	r := NewEnvResolver(newTestLogger(t))

	if _, err := r.Resolve(runner, ""); err == nil {
		t.Fatalf("expected an error when the probe script fails")
	}
}
