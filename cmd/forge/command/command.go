package command

import (
	"fmt"
	"strings"
)

type SubCommand int

const (
	CI SubCommand = iota
	Autocomplete
	ConfigMigrate
)

var subCommandStrings = [...]string{
	"ci",
	"autocomplete",
	"config",
}

func ParseSubCommand(s string) (SubCommand, error) {
	for i, v := range subCommandStrings {
		if v == s {
			return SubCommand(i), nil
		}
	}
	return 0, fmt.Errorf("unsupported subcommand: %s", s)
}

type Flag int

const (
	Help Flag = iota
	Config
	Quiet
	Version
)

var (
	flagStrings = [...]string{
		"--help",
		"--config",
		"--quiet",
		"--version",
	}
	flagStringMap = map[string]Flag{
		"--help":    Help,
		"-h":        Help,
		"--config":  Config,
		"-c":        Config,
		"--quiet":   Quiet,
		"-q":        Quiet,
		"--version": Version,
	}
)

// ParseFlag parses a flag from a string. If the flag is a boolean flag, the value will be an empty string.
// --help, -h, --config=ci.json, -c=ci.json, --quiet, --version
func ParseFlag(s string) (flag Flag, value string, err error) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) == 1 {
		flag, ok := flagStringMap[s]
		if !ok {
			return 0, "", fmt.Errorf("unsupported flag: %s", s)
		}
		return flag, "", nil
	}
	flag, ok := flagStringMap[parts[0]]
	if !ok {
		return 0, "", fmt.Errorf("unsupported flag: %s", s)
	}
	return flag, parts[1], nil
}

func (f Flag) String() string {
	return flagStrings[f]
}

type Command struct {
	SubCommand    SubCommand
	ConfigPath    string
	Quiet         bool
	HelpWanted    bool
	VersionWanted bool
}

func NewCommand(args []string) (*Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no command provided")
	}

	c := &Command{}
	if args[0] == "--help" || args[0] == "-h" {
		c.HelpWanted = true
		return c, nil
	}
	if args[0] == "--version" {
		c.VersionWanted = true
		return c, nil
	}

	subCommand, err := ParseSubCommand(args[0])
	if err != nil {
		return nil, err
	}
	c.SubCommand = subCommand

	args = args[1:]
	// "config migrate" is the only two-word subcommand this parser accepts.
	if subCommand == ConfigMigrate {
		if len(args) == 0 || args[0] != "migrate" {
			return nil, fmt.Errorf("unsupported config subcommand, expected: config migrate")
		}
		args = args[1:]
	}

	for i := 0; i < len(args); i++ {
		if args[i][0] != '-' {
			return nil, fmt.Errorf("unexpected argument: %s", args[i])
		}
		flag, value, err := ParseFlag(args[i])
		if err != nil {
			return nil, err
		}
		switch flag {
		case Help:
			c.HelpWanted = true
			return c, nil
		case Version:
			c.VersionWanted = true
			return c, nil
		case Config:
			c.ConfigPath = value
		case Quiet:
			c.Quiet = true
		default:
			return nil, fmt.Errorf("unsupported flag: %s", args[i])
		}
	}

	if c.SubCommand == CI && c.ConfigPath == "" {
		return nil, fmt.Errorf("no config file provided: use --config=path.json")
	}

	return c, nil
}

func (c *Command) String() string {
	var sb strings.Builder
	sb.WriteString("forge ")
	sb.WriteString(subCommandStrings[c.SubCommand])
	if c.HelpWanted {
		sb.WriteString(" ")
		sb.WriteString(flagStrings[Help])
	}
	if c.ConfigPath != "" {
		sb.WriteString(" ")
		sb.WriteString(flagStrings[Config])
		sb.WriteString("=")
		sb.WriteString(c.ConfigPath)
	}
	if c.Quiet {
		sb.WriteString(" ")
		sb.WriteString(flagStrings[Quiet])
	}
	return sb.String()
}

const Usage = `
NAME
    forge - a local CI job scheduler and executor

SYNOPSIS
    forge ci --config=path.json [--quiet]
    forge autocomplete
    forge config migrate
    forge [-h | --help | --version]

FORGE COMMANDS
    ci              run the job graph described by a config file to completion
    autocomplete    print a shell completion script fragment
    config migrate  not supported by this engine

OPTIONS
    -c --config     path to a JSON config file describing jobs and constraints
    -q --quiet      suppress the Display sink's periodic progress output
    -h --help       print this usage information
    --version       print the forge version

EXAMPLES
    $ forge ci --config=ci.json
    > ...job progress...
    > exit code 0 on success, 1 if any job failed or was cancelled

`
