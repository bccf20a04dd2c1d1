package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInitWriterRespectsLevel(t *testing.T) {
	defer func() { Logger = nil }()

	var buf bytes.Buffer
	InitWriter(&buf, log.InfoLevel)

	Debug("hidden", "k", 1)
	Info("page loaded", "offset", 20)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "page loaded") || !strings.Contains(out, "offset=20") {
		t.Errorf("missing info line in %q", out)
	}
}

func TestHelpersNoopBeforeInit(t *testing.T) {
	Logger = nil
	Info("x")
	Warn("x")
	Error("x")
	if WithPrefix("p") != nil {
		t.Error("WithPrefix should be nil before init")
	}
}

func TestInitCreatesDatedFile(t *testing.T) {
	defer func() { Close(); Logger = nil }()

	dir := t.TempDir()
	if err := Init(dir, log.DebugLevel); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("hello")
	Close()

	matches, _ := filepath.Glob(filepath.Join(dir, "reel-*.log"))
	if len(matches) != 1 {
		t.Fatalf("expected one log file, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != log.DebugLevel {
		t.Error("debug not parsed")
	}
	if ParseLevel("nonsense") != log.InfoLevel {
		t.Error("unknown level should default to info")
	}
}
