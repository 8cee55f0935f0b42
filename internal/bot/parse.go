package bot

import (
	"fmt"
	"strings"

	"herald_bot/internal/model"
)

// ParseWatchArgs extracts the service name and entity key from /watch and
// /unwatch arguments.
func ParseWatchArgs(args string) (family, key string, err error) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("usage: <service> <key>")
	}
	return strings.ToLower(parts[0]), strings.ToLower(parts[1]), nil
}

// ParseOnOff parses a single on/off argument.
func ParseOnOff(args string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", args)
	}
}

// BadWordCommand holds the parsed arguments of /badword.
type BadWordCommand struct {
	Action string
	Kind   model.BadWordKind
	Entry  string
}

// ParseBadWordArgs parses /badword subcommands:
// add <word>, addre <regex>, del <entry>, list.
func ParseBadWordArgs(args string) (BadWordCommand, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return BadWordCommand{}, fmt.Errorf("subcommand is required")
	}

	action := strings.ToLower(parts[0])
	rest := strings.Join(parts[1:], " ")

	switch action {
	case "list":
		if rest != "" {
			return BadWordCommand{}, fmt.Errorf("list takes no arguments")
		}
		return BadWordCommand{Action: "list"}, nil
	case "add":
		if rest == "" {
			return BadWordCommand{}, fmt.Errorf("entry is required")
		}
		return BadWordCommand{Action: "add", Kind: model.BadWordPlain, Entry: rest}, nil
	case "addre":
		if rest == "" {
			return BadWordCommand{}, fmt.Errorf("pattern is required")
		}
		return BadWordCommand{Action: "addre", Kind: model.BadWordRegex, Entry: rest}, nil
	case "del":
		if rest == "" {
			return BadWordCommand{}, fmt.Errorf("entry is required")
		}
		return BadWordCommand{Action: "del", Entry: rest}, nil
	default:
		return BadWordCommand{}, fmt.Errorf("unknown subcommand %q", action)
	}
}
