package models

import (
	"errors"
	"testing"
	"time"

	"github.com/ferrows/mnemo/internal/apperr"
)

func validRecord() *Record {
	now := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	return &Record{
		ID:        "gotcha-sqlite-wal-locking",
		Type:      TypeGotcha,
		Title:     "SQLite WAL locking under concurrent writers",
		CreatedAt: now,
		UpdatedAt: now,
		Tags:      []string{"sqlite", "concurrency"},
		Scope:     TierProject,
		Severity:  SeverityHigh,
		Content:   "WAL mode still serializes writers.",
	}
}

func TestRecordValidate_OK(t *testing.T) {
	if err := validRecord().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecordValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Record)
	}{
		{"empty id", func(r *Record) { r.ID = "" }},
		{"uppercase id", func(r *Record) { r.ID = "Gotcha-Thing" }},
		{"no slug", func(r *Record) { r.ID = "gotcha-" }},
		{"unknown type", func(r *Record) { r.Type = "memo"; r.ID = "memo-thing" }},
		{"empty title", func(r *Record) { r.Title = "" }},
		{"unknown scope", func(r *Record) { r.Scope = "workspace" }},
		{"unknown severity", func(r *Record) { r.Severity = "fatal" }},
		{"zero createdAt", func(r *Record) { r.CreatedAt = time.Time{} }},
		{"empty tag", func(r *Record) { r.Tags = []string{"ok", ""} }},
		{"bad link id", func(r *Record) { r.Links = []string{"NotAnID"} }},
		{"prefix mismatch", func(r *Record) { r.ID = "decision-sqlite-wal-locking" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRecord()
			tc.mutate(r)
			err := r.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("error %v does not wrap ErrValidation", err)
			}
		})
	}
}

func TestRecordTypePriority(t *testing.T) {
	if TypeGotcha.Priority() >= TypeDecision.Priority() {
		t.Error("gotcha must outrank decision")
	}
	if TypeHub.Priority() != len(RecordTypes())-1 {
		t.Errorf("hub priority = %d, want last", TypeHub.Priority())
	}
	if RecordType("memo").Priority() != len(RecordTypes()) {
		t.Error("unknown type must sort after all known types")
	}
}

func TestSeverityValid_EmptyIsUnset(t *testing.T) {
	if !Severity("").Valid() {
		t.Error("empty severity must be treated as unset, not invalid")
	}
	if Severity("fatal").Valid() {
		t.Error("unknown severity accepted")
	}
}
