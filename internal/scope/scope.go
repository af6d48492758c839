// Package scope maps logical storage tiers to concrete directories.
//
// Four tiers exist, with precedence enterprise > local > project > global.
// Precedence only matters when no tier was requested explicitly; an explicit
// request is honored outright when legal.
package scope

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ferrows/mnemo/internal/apperr"
	"github.com/ferrows/mnemo/internal/models"
)

const (
	// StorageSubdir is the per-project storage directory name.
	StorageSubdir = ".mnemo"

	// localIgnorePattern is appended to a project's .gitignore so the
	// local tier never leaks into version control.
	localIgnorePattern = StorageSubdir + "/local/"

	// vcsMarker is the project marker used for default-tier inference.
	vcsMarker = ".git"
)

// Context carries everything resolution needs. It owns no state: resolution
// is a pure function of the context plus the requested tier, except for the
// local tier's one-time ignore-file side effect.
type Context struct {
	// Dir is the directory resolution starts from (usually the cwd).
	Dir string

	// GlobalRoot is the fixed cross-project storage root.
	GlobalRoot string

	// EnterpriseEnabled gates the privileged enterprise tier.
	EnterpriseEnabled bool

	// EnterprisePath is the configured enterprise directory, used verbatim.
	EnterprisePath string

	// DefaultTier is the configured default, taking precedence over
	// inference but not over a caller-forced default.
	DefaultTier models.Tier
}

// Resolve maps a tier to its concrete absolute directory.
func Resolve(ctx Context, tier models.Tier) (string, error) {
	switch tier {
	case models.TierEnterprise:
		if !ctx.EnterpriseEnabled {
			return "", fmt.Errorf("%w: enterprise scope is disabled (enable it in configuration)", apperr.ErrScopeUnavailable)
		}
		if ctx.EnterprisePath == "" {
			return "", fmt.Errorf("%w: enterprise scope enabled but no path configured", apperr.ErrScopeUnavailable)
		}
		return ctx.EnterprisePath, nil

	case models.TierGlobal:
		if ctx.GlobalRoot == "" {
			return "", fmt.Errorf("%w: no global storage root configured", apperr.ErrScopeUnavailable)
		}
		return ctx.GlobalRoot, nil

	case models.TierProject:
		root, ok := ProjectRoot(ctx.Dir)
		if !ok {
			return "", fmt.Errorf("%w: project scope requires a version-controlled directory (no %s found above %s)", apperr.ErrScopeUnavailable, vcsMarker, ctx.Dir)
		}
		return filepath.Join(root, StorageSubdir), nil

	case models.TierLocal:
		root, ok := ProjectRoot(ctx.Dir)
		if !ok {
			return "", fmt.Errorf("%w: local scope requires a version-controlled directory (no %s found above %s)", apperr.ErrScopeUnavailable, vcsMarker, ctx.Dir)
		}
		if err := ensureLocalIgnored(root); err != nil {
			return "", fmt.Errorf("local scope: %w", err)
		}
		return filepath.Join(root, StorageSubdir, "local"), nil

	default:
		return "", fmt.Errorf("%w: unknown tier %q", apperr.ErrValidation, tier)
	}
}

// DefaultTier picks the tier used when none was requested. Precedence:
// forced (caller) > configured (Context.DefaultTier) > inferred. Inference
// walks upward from Context.Dir looking for a version-control marker and
// defaults to project when one is found, global otherwise.
func DefaultTier(ctx Context, forced models.Tier) models.Tier {
	if forced != "" {
		return forced
	}
	if ctx.DefaultTier != "" {
		return ctx.DefaultTier
	}
	if _, ok := ProjectRoot(ctx.Dir); ok {
		return models.TierProject
	}
	return models.TierGlobal
}

// AllAccessible returns the tiers usable under this context, in
// enterprise, local, project, global order.
func AllAccessible(ctx Context) []models.Tier {
	var out []models.Tier
	if ctx.EnterpriseEnabled && ctx.EnterprisePath != "" {
		out = append(out, models.TierEnterprise)
	}
	if _, ok := ProjectRoot(ctx.Dir); ok {
		out = append(out, models.TierLocal, models.TierProject)
	}
	if ctx.GlobalRoot != "" {
		out = append(out, models.TierGlobal)
	}
	return out
}

// ProjectRoot walks upward from dir until it finds a version-control marker.
func ProjectRoot(dir string) (string, bool) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(cur, vcsMarker)); err == nil {
			return cur, true
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", false
		}
		cur = parent
	}
}

// ensureLocalIgnored makes sure the local storage pattern is present in the
// project's .gitignore: the file is created if absent, appended to if the
// pattern is missing, and left alone otherwise.
func ensureLocalIgnored(projectRoot string) error {
	path := filepath.Join(projectRoot, ".gitignore")

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read .gitignore: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == localIgnorePattern {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open .gitignore: %w", err)
	}
	defer f.Close()

	entry := localIgnorePattern + "\n"
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		entry = "\n" + entry
	}
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("append to .gitignore: %w", err)
	}
	return nil
}
