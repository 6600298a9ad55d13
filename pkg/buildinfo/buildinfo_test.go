package buildinfo

import (
	"runtime/debug"
	"testing"
)

func TestBinaryVersionDefault(t *testing.T) {
	if BinaryVersion != "dev" {
		t.Errorf("Expected BinaryVersion to be 'dev', got '%s'", BinaryVersion)
	}
}

func TestModuleVersionIntegration(t *testing.T) {
	expected := ""
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		expected = info.Main.Version
	}
	if actual := ModuleVersion(); expected != actual {
		t.Errorf("ModuleVersion() = '%s', expected '%s'", actual, expected)
	}
}

func TestVersionPrefersLdflags(t *testing.T) {
	orig := BinaryVersion
	t.Cleanup(func() { BinaryVersion = orig })

	BinaryVersion = "v1.4.0"
	if got := Version(); got != "v1.4.0" {
		t.Errorf("Version() = %q, want v1.4.0", got)
	}

	BinaryVersion = "dev"
	want := ModuleVersion()
	if want == "" {
		want = "dev"
	}
	if got := Version(); got != want {
		t.Errorf("Version() = %q, want %q", got, want)
	}
}

func TestVCSRevisionPrefersStamp(t *testing.T) {
	orig := Commit
	t.Cleanup(func() { Commit = orig })

	Commit = "abc1234"
	if got := VCSRevision(); got != "abc1234" {
		t.Errorf("VCSRevision() = %q", got)
	}
}
