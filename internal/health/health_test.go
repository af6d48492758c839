package health_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ferrows/mnemo/internal/health"
	"github.com/ferrows/mnemo/internal/models"
	"github.com/ferrows/mnemo/internal/recordfile"
	"github.com/ferrows/mnemo/internal/store"
	"github.com/ferrows/mnemo/internal/testutil"
)

func write(t *testing.T, st *store.Store, id string, typ models.RecordType) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	rec := &models.Record{
		ID: id, Type: typ, Title: "Title of " + id,
		CreatedAt: now, UpdatedAt: now, Content: "content of " + id,
	}
	if _, err := st.Write(context.Background(), rec, store.WriteOptions{}); err != nil {
		t.Fatal(err)
	}
}

func TestCheckHealth_LinkedScopeIsPerfect(t *testing.T) {
	st := testutil.TestStore(t)
	write(t, st, "decision-a", models.TypeDecision)
	write(t, st, "gotcha-b", models.TypeGotcha)
	if _, err := st.Link("decision-a", "gotcha-b", ""); err != nil {
		t.Fatal(err)
	}

	report, err := health.CheckHealth(st.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if report.Score != 100 || report.Status != "healthy" {
		t.Errorf("report = %+v", report)
	}
	if len(report.Issues) != 0 {
		t.Errorf("issues = %+v", report.Issues)
	}
	if report.Stats.TotalMemories != 2 || report.Stats.TotalEdges != 1 {
		t.Errorf("stats = %+v", report.Stats)
	}
}

func TestCheckHealth_EmptyDirectory(t *testing.T) {
	report, err := health.CheckHealth(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// Two errors: missing index and missing graph.
	if report.Score != 70 || report.Status != "warning" {
		t.Errorf("report = %+v", report)
	}
	kinds := issueKinds(report)
	if !kinds[health.IssueMissingIndex] || !kinds[health.IssueMissingGraph] {
		t.Errorf("issues = %+v", report.Issues)
	}
	if report.Stats.TotalMemories != 0 || report.Stats.TotalEdges != 0 {
		t.Errorf("stats must still be populated: %+v", report.Stats)
	}
}

func TestCheckHealth_OrphanNodeIsWarning(t *testing.T) {
	st := testutil.TestStore(t)
	write(t, st, "decision-a", models.TypeDecision)

	report, err := health.CheckHealth(st.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if report.Score != 95 || report.Status != "healthy" {
		t.Errorf("report = %+v", report)
	}
	if len(report.Issues) != 1 || report.Issues[0].Kind != health.IssueOrphanNode {
		t.Errorf("issues = %+v", report.Issues)
	}
	if report.Issues[0].Severity != health.SeverityWarning {
		t.Errorf("severity = %q", report.Issues[0].Severity)
	}
}

func TestCheckHealth_MissingFileIsError(t *testing.T) {
	st := testutil.TestStore(t)
	write(t, st, "decision-a", models.TypeDecision)
	write(t, st, "gotcha-b", models.TypeGotcha)
	if _, err := st.Link("decision-a", "gotcha-b", ""); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(st.Dir(), "gotcha-b.md")); err != nil {
		t.Fatal(err)
	}

	report, err := health.CheckHealth(st.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if !issueKinds(report)[health.IssueUnreadableRecord] {
		t.Errorf("issues = %+v", report.Issues)
	}
	if report.Score != 85 {
		t.Errorf("score = %d, want 85", report.Score)
	}
}

func TestCheckHealth_SyncMismatch(t *testing.T) {
	st := testutil.TestStore(t)
	write(t, st, "decision-a", models.TypeDecision)

	// Drop the graph node behind the store's back.
	raw := `{"version":1,"nodes":[],"edges":[]}`
	if err := os.WriteFile(filepath.Join(st.Dir(), store.GraphFileName), []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := health.CheckHealth(st.Dir())
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, is := range report.Issues {
		if is.Kind == health.IssueSyncMismatch {
			found = true
			if is.Severity != health.SeverityWarning {
				t.Errorf("severity = %q, want warning", is.Severity)
			}
			if !strings.Contains(is.Message, "decision-a") {
				t.Errorf("message = %q", is.Message)
			}
		}
	}
	if !found {
		t.Errorf("no sync-mismatch issue: %+v", report.Issues)
	}
	if report.Stats.TotalMemories != 1 {
		t.Errorf("stats = %+v", report.Stats)
	}
}

func TestCheckHealth_FileMetadataMismatch(t *testing.T) {
	st := testutil.TestStore(t)
	write(t, st, "gotcha-a", models.TypeGotcha)
	write(t, st, "decision-b", models.TypeDecision)
	if _, err := st.Link("gotcha-a", "decision-b", ""); err != nil {
		t.Fatal(err)
	}

	// Rewrite the file out of band so its embedded metadata no longer
	// matches the index entry pointing at it.
	now := time.Now().UTC().Truncate(time.Second)
	swapped := &models.Record{
		ID: "decision-swapped", Type: models.TypeDecision, Title: "swapped out",
		CreatedAt: now, UpdatedAt: now, Scope: models.TierProject,
		Content: "edited behind the engine",
	}
	data, err := recordfile.Marshal(swapped)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(st.Dir(), "gotcha-a.md"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := health.CheckHealth(st.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if report.Score != 95 || report.Status != "healthy" {
		t.Errorf("report = %+v", report)
	}
	if len(report.Issues) != 1 {
		t.Fatalf("issues = %+v", report.Issues)
	}
	is := report.Issues[0]
	if is.Kind != health.IssueSyncMismatch || is.Severity != health.SeverityWarning {
		t.Errorf("issue = %+v", is)
	}
	if is.Subject != "gotcha-a" || !strings.Contains(is.Message, "decision-swapped") {
		t.Errorf("issue = %+v", is)
	}
}

func TestCheckHealth_UnparsableFileIsError(t *testing.T) {
	st := testutil.TestStore(t)
	write(t, st, "gotcha-a", models.TypeGotcha)
	write(t, st, "decision-b", models.TypeDecision)
	if _, err := st.Link("gotcha-a", "decision-b", ""); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(st.Dir(), "gotcha-a.md"), []byte("no frontmatter here\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := health.CheckHealth(st.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if !issueKinds(report)[health.IssueUnreadableRecord] {
		t.Errorf("issues = %+v", report.Issues)
	}
	if report.Score != 85 {
		t.Errorf("score = %d, want 85", report.Score)
	}
}

func TestCalculateHealthScore_Bounds(t *testing.T) {
	if got := health.CalculateHealthScore(nil); got != 100 {
		t.Errorf("no issues = %d, want 100", got)
	}

	var many []health.Issue
	for i := 0; i < 10; i++ {
		many = append(many, health.Issue{Severity: health.SeverityError})
	}
	if got := health.CalculateHealthScore(many); got != 0 {
		t.Errorf("10 errors = %d, want 0 (clamped)", got)
	}

	mixed := []health.Issue{
		{Severity: health.SeverityError},
		{Severity: health.SeverityWarning},
		{Severity: health.SeverityWarning},
	}
	if got := health.CalculateHealthScore(mixed); got != 75 {
		t.Errorf("mixed = %d, want 75", got)
	}
}

func issueKinds(r *health.Report) map[string]bool {
	out := map[string]bool{}
	for _, is := range r.Issues {
		out[is.Kind] = true
	}
	return out
}
