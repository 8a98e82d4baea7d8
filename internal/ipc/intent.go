package ipc

import (
	"fmt"
	"strconv"
	"strings"
)

// IntentKind names a client command.
type IntentKind string

const (
	IntentOffsetUp    IntentKind = "offset-up"
	IntentOffsetDown  IntentKind = "offset-down"
	IntentOffsetReset IntentKind = "offset-reset"
	IntentSeek        IntentKind = "seek"
	IntentScroll      IntentKind = "scroll"
	IntentLine        IntentKind = "line"
	IntentTranslate   IntentKind = "translate"
)

// Intent is one parsed client command. Arg carries the numeric parameter for
// seek, scroll and line.
type Intent struct {
	Kind IntentKind
	Arg  int64
}

// ParseIntent parses one newline-delimited command line.
func ParseIntent(line string) (Intent, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return Intent{}, fmt.Errorf("empty command")
	}

	kind := IntentKind(fields[0])
	switch kind {
	case IntentOffsetUp, IntentOffsetDown, IntentOffsetReset, IntentTranslate:
		if len(fields) > 1 {
			return Intent{}, fmt.Errorf("command %s takes no argument", kind)
		}
		return Intent{Kind: kind}, nil
	case IntentSeek, IntentScroll, IntentLine:
		if len(fields) != 2 {
			return Intent{}, fmt.Errorf("command %s needs one argument", kind)
		}
		arg, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Intent{}, fmt.Errorf("invalid argument for %s: %q", kind, fields[1])
		}
		if kind == IntentSeek && arg < 0 {
			return Intent{}, fmt.Errorf("seek position must not be negative")
		}
		if kind == IntentLine && arg < 0 {
			return Intent{}, fmt.Errorf("line index must not be negative")
		}
		return Intent{Kind: kind, Arg: arg}, nil
	default:
		return Intent{}, fmt.Errorf("unknown command: %s", fields[0])
	}
}
