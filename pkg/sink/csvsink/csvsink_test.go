package csvsink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finsbridge/pkg/runtime"
	"finsbridge/pkg/sample"
)

func TestWriteCreatesHeaderAndRow(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)

	s := New("line1", time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC))
	buf := sample.NewBuffer(1)
	buf.Set("temp", runtime.Of(runtime.REAL32, float32(21.5)))
	buf.Set("running", runtime.Of(runtime.BOOL, true))

	if err := s.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	defer s.Close()

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "timestamp,temp,running") {
		t.Errorf("missing expected header, got: %q", content)
	}
	if !strings.Contains(content, "True") {
		t.Errorf("expected bool rendered as True, got: %q", content)
	}
}

func TestFormatFloatHasAtLeastSixSignificantDigits(t *testing.T) {
	cases := []struct {
		in   float32
		want string
	}{
		{21.5, "21.5000"},
		{1.5, "1.50000"},
		{123456.789, "123457"},
	}
	for _, c := range cases {
		if got := formatFloat(c.in); got != c.want {
			t.Errorf("formatFloat(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatFloatPadsSmallValuesWithLeadingZeros(t *testing.T) {
	got := formatFloat(0.0001234)
	if !strings.HasPrefix(got, "0.0001234") {
		t.Errorf("formatFloat(0.0001234) = %q, want a value starting 0.0001234", got)
	}
}

func TestWriteNeverOpensFileUntilFirstRow(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)

	s := New("line1", time.Now())
	if err := s.Close(); err != nil {
		t.Fatalf("Close before any Write should be a no-op: %v", err)
	}

	if _, err := os.Stat(filepath.Join("PLC_Data", "line1")); !os.IsNotExist(err) {
		t.Errorf("expected PLC_Data/line1 to not exist, got err=%v", err)
	}
}

func TestRemoveDeletesFile(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)

	s := New("line1", time.Now())
	buf := sample.NewBuffer(1)
	buf.Set("temp", runtime.Of(runtime.UINT16, uint16(1)))
	if err := s.Write(buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path := s.Path()

	if err := s.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected file to be removed, got err=%v", err)
	}
}
