package command

import (
	"strings"
	"testing"
)

func TestNewCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  *Command
		err   bool
	}{
		{
			name:  "no command provided",
			input: "",
			want:  nil,
			err:   true,
		},
		{
			name:  "help wanted --help",
			input: "--help",
			want: &Command{
				HelpWanted: true,
			},
		},
		{
			name:  "help wanted -h",
			input: "-h",
			want: &Command{
				HelpWanted: true,
			},
		},
		{
			name:  "version wanted",
			input: "--version",
			want: &Command{
				VersionWanted: true,
			},
		},
		{
			name:  "unrecognized subcommand",
			input: "unknown",
			want:  nil,
			err:   true,
		},
		{
			name:  "ci command -- no config provided",
			input: "ci",
			want:  nil,
			err:   true,
		},
		{
			name:  "ci command -- config provided",
			input: "ci --config=ci.json",
			want: &Command{
				SubCommand: CI,
				ConfigPath: "ci.json",
			},
		},
		{
			name:  "ci command -- config and quiet provided",
			input: "ci --config=ci.json --quiet",
			want: &Command{
				SubCommand: CI,
				ConfigPath: "ci.json",
				Quiet:      true,
			},
		},
		{
			name:  "ci command -- short flags",
			input: "ci -c=ci.json -q",
			want: &Command{
				SubCommand: CI,
				ConfigPath: "ci.json",
				Quiet:      true,
			},
		},
		{
			name:  "ci command -- help anywhere stops parsing",
			input: "ci --help",
			want: &Command{
				SubCommand: CI,
				HelpWanted: true,
			},
		},
		{
			name:  "autocomplete command",
			input: "autocomplete",
			want: &Command{
				SubCommand: Autocomplete,
			},
		},
		{
			name:  "config migrate command",
			input: "config migrate",
			want: &Command{
				SubCommand: ConfigMigrate,
			},
		},
		{
			name:  "config command -- missing migrate",
			input: "config",
			want:  nil,
			err:   true,
		},
		{
			name:  "ci command -- unexpected bare argument",
			input: "ci ci.json",
			want:  nil,
			err:   true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewCommand(strings.Split(tt.input, " "))
			if tt.err {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatalf("expected command, got nil")
			}
			if got.SubCommand != tt.want.SubCommand {
				t.Fatalf("expected subcommand %v, got %v", tt.want.SubCommand, got.SubCommand)
			}
			if got.ConfigPath != tt.want.ConfigPath {
				t.Fatalf("expected config path %q, got %q", tt.want.ConfigPath, got.ConfigPath)
			}
			if got.Quiet != tt.want.Quiet {
				t.Fatalf("expected quiet %v, got %v", tt.want.Quiet, got.Quiet)
			}
			if got.HelpWanted != tt.want.HelpWanted {
				t.Fatalf("expected help wanted %v, got %v", tt.want.HelpWanted, got.HelpWanted)
			}
			if got.VersionWanted != tt.want.VersionWanted {
				t.Fatalf("expected version wanted %v, got %v", tt.want.VersionWanted, got.VersionWanted)
			}
		})
	}
}

func TestParseFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input     string
		wantFlag  Flag
		wantValue string
		err       bool
	}{
		{input: "--help", wantFlag: Help},
		{input: "-h", wantFlag: Help},
		{input: "--config=ci.json", wantFlag: Config, wantValue: "ci.json"},
		{input: "--quiet", wantFlag: Quiet},
		{input: "--version", wantFlag: Version},
		{input: "--nope", err: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			flag, value, err := ParseFlag(tt.input)
			if tt.err {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if flag != tt.wantFlag {
				t.Fatalf("expected flag %v, got %v", tt.wantFlag, flag)
			}
			if value != tt.wantValue {
				t.Fatalf("expected value %q, got %q", tt.wantValue, value)
			}
		})
	}
}
