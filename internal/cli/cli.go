// Package cli parses the whisper-dictate command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/pflag"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandToggle  Command = "toggle"
	CommandStatus  Command = "status"
	CommandQuit    Command = "quit"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var commands = []Command{
	CommandServe,
	CommandToggle,
	CommandStatus,
	CommandQuit,
	CommandDevices,
	CommandDoctor,
	CommandVersion,
	CommandHelp,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

// Parse accepts at most one command word; flags may appear before or after
// it. --help takes precedence over --version and both override the command
// word. No command word means help.
func Parse(args []string) (Parsed, error) {
	fs := pflag.NewFlagSet("whisper-dictate", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	var parsed Parsed
	showHelp := fs.BoolP("help", "h", false, "show help")
	showVersion := fs.Bool("version", false, "show version")
	fs.StringVar(&parsed.ConfigPath, "config", "", "config file path")

	if err := fs.Parse(args); err != nil {
		return Parsed{}, err
	}
	if fs.Changed("config") && parsed.ConfigPath == "" {
		return Parsed{}, errors.New("--config requires a path")
	}

	rest := fs.Args()
	if len(rest) > 1 {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", rest[0])
	}

	switch {
	case *showHelp:
		parsed.Command, parsed.ShowHelp = CommandHelp, true
	case *showVersion:
		parsed.Command = CommandVersion
	case len(rest) == 0:
		parsed.Command, parsed.ShowHelp = CommandHelp, true
	default:
		cmd := Command(rest[0])
		if !slices.Contains(commands, cmd) {
			return Parsed{}, fmt.Errorf("unknown command: %s", rest[0])
		}
		parsed.Command, parsed.ShowHelp = cmd, cmd == CommandHelp
	}
	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  serve     Run the daemon; SIGUSR1 or "toggle" starts and stops recording
  toggle    Toggle the running daemon, or start one and begin recording
  status    Print current state (idle, recording, processing)
  quit      Ask the running daemon to exit
  devices   List available input devices
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/whisper-dictate/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
