package shared

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestTruncate(t *testing.T) {
	tc := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "short", in: "abc", max: 5, want: "abc"},
		{name: "exact", in: "abcde", max: 5, want: "abcde"},
		{name: "long", in: "abcdef", max: 5, want: "abcde…"},
		{name: "multibyte", in: "ééééé", max: 2, want: "éé…"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}

	t.Run("TruncateRunes", func(t *testing.T) {
		if got := TruncateRunes("héllo", 2); got != "hé" {
			t.Errorf("expected hé, got %q", got)
		}
		if got := TruncateRunes("hello", 0); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

func TestParseLogLevel(t *testing.T) {
	if got := ParseLogLevel(" DEBUG "); got != log.DebugLevel {
		t.Errorf("expected debug, got %v", got)
	}
	if got := ParseLogLevel("nonsense"); got != log.InfoLevel {
		t.Errorf("expected info fallback, got %v", got)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string, got %q", a)
	}
}

func TestOpenBrowser(t *testing.T) {
	t.Run("rejects non-web URLs", func(t *testing.T) {
		for _, target := range []string{"", "file:///etc/passwd", "javascript:alert(1)", "https://", "not a url"} {
			if err := OpenBrowser(target); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("%q: expected ErrInvalidArgument, got %v", target, err)
			}
		}
	})

	t.Run("unsupported platform", func(t *testing.T) {
		orig := getRuntime
		getRuntime = func() string { return "plan9" }
		defer func() { getRuntime = orig }()

		err := OpenBrowser("https://music.apple.com/library/playlist/p.1")
		if err == nil || !strings.Contains(err.Error(), "unsupported platform: plan9") {
			t.Errorf("expected unsupported platform error, got %v", err)
		}
	})

	t.Run("platform launchers", func(t *testing.T) {
		orig := getRuntime
		defer func() { getRuntime = orig }()

		for rt, bin := range map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"} {
			getRuntime = func() string { return rt }
			cmd, err := browserCommand("https://example.com")
			if err != nil {
				t.Fatalf("%s: unexpected error %v", rt, err)
			}
			if !strings.HasSuffix(cmd.Path, bin) && cmd.Args[0] != bin {
				t.Errorf("%s: expected %s, got %v", rt, bin, cmd.Args)
			}
		}
	})
}
