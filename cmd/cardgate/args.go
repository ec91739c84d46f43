package main

import (
	"strconv"
	"strings"

	"github.com/eliteGoblin/focusd/card_gate/internal/domain"
)

// Action is what a command line asks for.
type Action int

const (
	ActionUsage Action = iota
	ActionSession
	ActionUnblock
	ActionInvalid
)

// Decision is the parsed command line.
type Decision struct {
	Action  Action
	Minutes int    // reward minutes for ActionSession
	Arg     string // offending argument for ActionInvalid
}

// ParseArgs interprets the first argument. Later arguments are ignored.
func ParseArgs(args []string, defaultMinutes int) Decision {
	if len(args) == 0 {
		return Decision{Action: ActionUsage}
	}

	arg := args[0]
	switch arg {
	case "-h", "--help":
		return Decision{Action: ActionUsage}
	case "-u":
		return Decision{Action: ActionUnblock}
	case "-d":
		return Decision{Action: ActionSession, Minutes: defaultMinutes}
	}

	if minutes, ok := parseMinutes(arg); ok {
		return Decision{Action: ActionSession, Minutes: minutes}
	}
	return Decision{Action: ActionInvalid, Arg: arg}
}

// parseMinutes accepts "-<N>" with N a positive decimal integer small
// enough for the reward duration to be representable.
func parseMinutes(arg string) (int, bool) {
	digits, found := strings.CutPrefix(arg, "-")
	if !found || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil || !domain.ValidRewardMinutes(n) {
		return 0, false
	}
	return n, true
}
