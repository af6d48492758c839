package scope

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ferrows/mnemo/internal/apperr"
	"github.com/ferrows/mnemo/internal/models"
)

// projectDir creates a temp dir with a .git marker and returns a nested
// working directory inside it.
func projectDir(t *testing.T) (root, work string) {
	t.Helper()
	root = t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	work = filepath.Join(root, "internal", "api")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}
	return root, work
}

func TestResolve_Project(t *testing.T) {
	root, work := projectDir(t)
	dir, err := Resolve(Context{Dir: work}, models.TierProject)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dir != filepath.Join(root, StorageSubdir) {
		t.Errorf("dir = %q", dir)
	}
}

func TestResolve_ProjectOutsideVCS(t *testing.T) {
	_, err := Resolve(Context{Dir: t.TempDir()}, models.TierProject)
	if err == nil {
		t.Fatal("expected error outside a version-controlled directory")
	}
	if !errors.Is(err, apperr.ErrScopeUnavailable) {
		t.Errorf("error %v does not wrap ErrScopeUnavailable", err)
	}
}

func TestResolve_LocalAppendsGitignore(t *testing.T) {
	root, work := projectDir(t)
	dir, err := Resolve(Context{Dir: work}, models.TierLocal)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dir != filepath.Join(root, StorageSubdir, "local") {
		t.Errorf("dir = %q", dir)
	}

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		t.Fatalf("read .gitignore: %v", err)
	}
	if !strings.Contains(string(data), localIgnorePattern) {
		t.Errorf(".gitignore missing pattern: %q", data)
	}

	// A second resolve must not duplicate the pattern.
	if _, err := Resolve(Context{Dir: work}, models.TierLocal); err != nil {
		t.Fatal(err)
	}
	data2, _ := os.ReadFile(filepath.Join(root, ".gitignore"))
	if strings.Count(string(data2), localIgnorePattern) != 1 {
		t.Errorf("pattern duplicated: %q", data2)
	}
}

func TestResolve_LocalKeepsExistingGitignore(t *testing.T) {
	root, work := projectDir(t)
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte("node_modules/"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Resolve(Context{Dir: work}, models.TierLocal); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(root, ".gitignore"))
	s := string(data)
	if !strings.Contains(s, "node_modules/") || !strings.Contains(s, localIgnorePattern) {
		t.Errorf("gitignore = %q", s)
	}
}

func TestResolve_Global(t *testing.T) {
	dir, err := Resolve(Context{GlobalRoot: "/srv/mnemo"}, models.TierGlobal)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dir != "/srv/mnemo" {
		t.Errorf("dir = %q", dir)
	}
	if _, err := Resolve(Context{}, models.TierGlobal); !errors.Is(err, apperr.ErrScopeUnavailable) {
		t.Errorf("missing global root: %v", err)
	}
}

func TestResolve_EnterpriseGate(t *testing.T) {
	_, err := Resolve(Context{EnterprisePath: "/srv/org"}, models.TierEnterprise)
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Errorf("disabled enterprise: %v", err)
	}

	_, err = Resolve(Context{EnterpriseEnabled: true}, models.TierEnterprise)
	if err == nil || !strings.Contains(err.Error(), "path") {
		t.Errorf("enabled without path: %v", err)
	}

	dir, err := Resolve(Context{EnterpriseEnabled: true, EnterprisePath: "/srv/org"}, models.TierEnterprise)
	if err != nil || dir != "/srv/org" {
		t.Errorf("resolve = (%q, %v)", dir, err)
	}
}

func TestResolve_UnknownTier(t *testing.T) {
	if _, err := Resolve(Context{}, models.Tier("workspace")); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown tier: %v", err)
	}
}

func TestDefaultTier_Precedence(t *testing.T) {
	_, work := projectDir(t)

	// Forced beats everything.
	if got := DefaultTier(Context{Dir: work, DefaultTier: models.TierGlobal}, models.TierLocal); got != models.TierLocal {
		t.Errorf("forced: got %q", got)
	}
	// Configured beats inference.
	if got := DefaultTier(Context{Dir: work, DefaultTier: models.TierGlobal}, ""); got != models.TierGlobal {
		t.Errorf("configured: got %q", got)
	}
	// Inside a VCS directory, inference yields project.
	if got := DefaultTier(Context{Dir: work}, ""); got != models.TierProject {
		t.Errorf("inferred in project: got %q", got)
	}
	// Outside, global.
	if got := DefaultTier(Context{Dir: t.TempDir()}, ""); got != models.TierGlobal {
		t.Errorf("inferred outside: got %q", got)
	}
}

func TestAllAccessible(t *testing.T) {
	_, work := projectDir(t)
	ctx := Context{
		Dir:               work,
		GlobalRoot:        "/srv/mnemo",
		EnterpriseEnabled: true,
		EnterprisePath:    "/srv/org",
	}
	got := AllAccessible(ctx)
	want := []models.Tier{models.TierEnterprise, models.TierLocal, models.TierProject, models.TierGlobal}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	// Outside a project, only global remains.
	got = AllAccessible(Context{Dir: t.TempDir(), GlobalRoot: "/srv/mnemo"})
	if len(got) != 1 || got[0] != models.TierGlobal {
		t.Errorf("got %v", got)
	}
}

func TestProjectRoot_WalksUp(t *testing.T) {
	root, work := projectDir(t)
	got, ok := ProjectRoot(work)
	if !ok || got != root {
		t.Errorf("ProjectRoot = (%q, %v), want %q", got, ok, root)
	}
}
