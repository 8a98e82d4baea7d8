package ipc

import "testing"

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantKind IntentKind
		wantArg  int64
		wantErr  bool
	}{
		{name: "offset up", line: "offset-up", wantKind: IntentOffsetUp},
		{name: "offset down", line: "offset-down", wantKind: IntentOffsetDown},
		{name: "offset reset", line: "offset-reset", wantKind: IntentOffsetReset},
		{name: "translate toggle", line: "translate", wantKind: IntentTranslate},
		{name: "seek", line: "seek 42000", wantKind: IntentSeek, wantArg: 42000},
		{name: "scroll down", line: "scroll 3", wantKind: IntentScroll, wantArg: 3},
		{name: "scroll up", line: "scroll -2", wantKind: IntentScroll, wantArg: -2},
		{name: "line", line: "line 7", wantKind: IntentLine, wantArg: 7},
		{name: "trailing whitespace", line: "  seek 100  ", wantKind: IntentSeek, wantArg: 100},
		{name: "empty", line: "", wantErr: true},
		{name: "unknown", line: "jump 5", wantErr: true},
		{name: "seek without arg", line: "seek", wantErr: true},
		{name: "seek negative", line: "seek -100", wantErr: true},
		{name: "line negative", line: "line -1", wantErr: true},
		{name: "offset with extra arg", line: "offset-up 500", wantErr: true},
		{name: "non numeric arg", line: "scroll abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, err := ParseIntent(tt.line)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %+v", tt.line, intent)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.line, err)
			}
			if intent.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", intent.Kind, tt.wantKind)
			}
			if intent.Arg != tt.wantArg {
				t.Errorf("arg = %d, want %d", intent.Arg, tt.wantArg)
			}
		})
	}
}
