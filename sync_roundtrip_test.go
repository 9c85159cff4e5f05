package gitkv

import (
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/gitkv-project/gitkv/internal/gitkvconfig"
)

func initBareRemote(t *testing.T, dir string) {
	t.Helper()
	cmd := exec.Command("git", "init", "--bare", "--initial-branch=main", dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git init --bare: %v\n%s", err, out)
	}
}

func openStoreAgainst(t *testing.T, remote string) *Store {
	t.Helper()
	cfg := gitkvconfig.Defaults()
	cfg.DataDir = t.TempDir()
	cfg.RepoURL = remote
	cfg.AutoSync = false
	cfg.History.Enabled = false

	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTwoReplicasConvergeThroughSync(t *testing.T) {
	remote := filepath.Join(t.TempDir(), "remote.git")
	initBareRemote(t, remote)

	a := openStoreAgainst(t, remote)
	b := openStoreAgainst(t, remote)

	if err := a.Set("shared", "from-a"); err != nil {
		t.Fatalf("a.Set: %v", err)
	}
	if res := a.Sync("manual"); !res.Success {
		t.Fatalf("a.Sync: %+v", res)
	}

	if res := b.Sync("manual"); !res.Success {
		t.Fatalf("b.Sync: %+v", res)
	}

	v, ok := b.Get("shared")
	if !ok || v != "from-a" {
		t.Fatalf("expected replica b to observe a's write, got (%v, %v)", v, ok)
	}
}
