package version

import "testing"

func TestGet(t *testing.T) {
	origV, origSHA, origTime := Version, GitSHA, BuildTime
	defer func() { Version, GitSHA, BuildTime = origV, origSHA, origTime }()

	Version, GitSHA, BuildTime = "1.2.0", "abc1234", "2026-04-01T10:00:00Z"
	got := Get()
	if got != (Info{Version: "1.2.0", GitSHA: "abc1234", BuildTime: "2026-04-01T10:00:00Z"}) {
		t.Errorf("Get() = %+v", got)
	}
	if want := "intersection 1.2.0 (abc1234, built 2026-04-01T10:00:00Z)"; got.String() != want {
		t.Errorf("String() = %q, want %q", got.String(), want)
	}
}
