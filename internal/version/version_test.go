package version

import (
	"runtime/debug"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFromBuildInfoPrefersOverride(t *testing.T) {
	info := &debug.BuildInfo{Main: debug.Module{Path: "example.com/x", Version: "v9.9.9"}}
	got := fromBuildInfo(info, "v1.2.3+dirty")
	if got.Version != "v1.2.3" || got.Module != "example.com/x" {
		t.Fatalf("expected override version, got %+v", got)
	}
}

func TestFromBuildInfoPseudoVersion(t *testing.T) {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	info := &debug.BuildInfo{
		GoVersion: "go1.25.2",
		Main:      debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	want := Info{
		Module:    defaultModule,
		Version:   "v0.0.0-20250102030405-1234567890ab",
		Revision:  "1234567890abcdef",
		Modified:  true,
		GoVersion: "go1.25.2",
	}
	if diff := cmp.Diff(want, fromBuildInfo(info, "")); diff != "" {
		t.Fatalf("unexpected info (-want +got):\n%s", diff)
	}
}

func TestFromBuildInfoWithoutInfo(t *testing.T) {
	got := fromBuildInfo(nil, "")
	if got.Module != defaultModule || got.Version != "v0.0.0-unknown" {
		t.Fatalf("unexpected fallback %+v", got)
	}
	if got.String() != defaultModule+" v0.0.0-unknown" {
		t.Fatalf("unexpected string %q", got.String())
	}
}
