package mcpserver

// RecordFormatContract describes the canonical record format that LLM
// consumers should follow when saving or updating records.
const RecordFormatContract = `# Mnemo Record Format Contract

Every record stored in Mnemo MUST follow this structure.

## Identity

Record ids are ` + "`" + `{type}-{slug}` + "`" + `: a type prefix, a dash, and a lowercase
kebab-case slug derived from the title. Valid types:

- ` + "`" + `decision` + "`" + ` — an architectural or process decision and its rationale
- ` + "`" + `learning` + "`" + ` — a lesson learned, a pattern that worked or failed
- ` + "`" + `artifact` + "`" + ` — a description of a significant code artifact
- ` + "`" + `gotcha` + "`" + ` — a pitfall or surprising behavior to warn about
- ` + "`" + `breadcrumb` + "`" + ` — a short navigational note for future sessions
- ` + "`" + `hub` + "`" + ` — a curated entry point that links related records

Omit the id when saving and one is derived from the type and title.

## Structure

` + "```" + `markdown
---
id: gotcha-sqlite-wal-locking        # type prefix must match the type field
type: gotcha
title: SQLite WAL locking under concurrent writers
created: 2026-01-15T10:00:00Z        # RFC 3339 UTC, set by the engine
updated: 2026-01-15T10:00:00Z
tags:                                 # OPTIONAL - lowercase kebab-case
  - sqlite
  - concurrency
severity: high                        # OPTIONAL - low | medium | high | critical
links:                                # OPTIONAL - ids of related records
  - decision-use-sqlite-mirror
---

Body text in standard Markdown. This is the content that gets embedded
and searched, so lead with the most important sentence.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "`" + `---` + "`" + ` fences must be the first
   thing in the file.
2. **` + "`" + `type` + "`" + ` and ` + "`" + `title` + "`" + ` are required.** The id's prefix must equal the type.
3. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `error-handling` + "`" + `, ` + "`" + `project-x` + "`" + `).
4. **Relations** between records: ` + "`" + `relates-to` + "`" + `, ` + "`" + `implements` + "`" + `, ` + "`" + `supersedes` + "`" + `,
   ` + "`" + `blocked-by` + "`" + `, ` + "`" + `informs` + "`" + `, ` + "`" + `exemplifies` + "`" + `. Edges listed in ` + "`" + `links` + "`" + ` default
   to ` + "`" + `relates-to` + "`" + `; use the link tool for anything more specific.
5. **Encoding** is UTF-8 with a trailing newline.
6. Keep records focused: one decision, one gotcha, one lesson per record.
   Use a ` + "`" + `hub` + "`" + ` record to group related material.
`
