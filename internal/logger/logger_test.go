package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestTextOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "text", false)

	Info("cid stored", KeyCID, "CAAAAABhZGM", KeySize, 3)

	out := buf.String()
	if !strings.Contains(out, "[INFO]") {
		t.Errorf("missing level tag: %q", out)
	}
	if !strings.Contains(out, "cid=CAAAAABhZGM") {
		t.Errorf("missing cid attr: %q", out)
	}
	if !strings.Contains(out, "size=3") {
		t.Errorf("missing size attr: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text", false)

	Debug("hidden")
	Info("also hidden")
	Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("filtered levels leaked: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn level suppressed: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json", false)

	Info("request served", KeyStatus, 200)

	out := buf.String()
	if !strings.Contains(out, `"msg":"request served"`) {
		t.Errorf("not JSON output: %q", out)
	}
	if !strings.Contains(out, `"status":200`) {
		t.Errorf("missing status field: %q", out)
	}
}
