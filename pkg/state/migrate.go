package state

// State schema migrations. Each step rewrites the raw JSON document in
// place; steps run in order from the file's version up to CurrentVersion.
// Migrations work on the raw map because the legacy keys they read no
// longer exist on the State struct.

// rawVersion extracts the schema version from a raw state document.
// Absent or malformed versions read as 1 (the pre-versioning schema).
func rawVersion(raw map[string]any) int {
	v, ok := raw["version"]
	if !ok {
		return 1
	}
	f, ok := v.(float64)
	if !ok || f < 1 {
		return 1
	}
	return int(f)
}

// Migrate upgrades a raw state document from version to CurrentVersion.
func Migrate(raw map[string]any, version int) {
	for v := version; v < CurrentVersion; v++ {
		if step, ok := migrations[v]; ok {
			step(raw)
		}
	}
	raw["version"] = CurrentVersion
}

// migrations maps a from-version to the step that produces from+1.
var migrations = map[int]func(map[string]any){
	1: migrateScoreKeys,
}

// migrateScoreKeys normalizes the v1 score keys ("score", "objective_strict",
// "subjective_integrity_status") into the four canonical score channels and
// the structured integrity object, on the top level and each history entry.
func migrateScoreKeys(raw map[string]any) {
	normalizeScores(raw, false)

	hist, _ := raw["scan_history"].([]any)
	for _, e := range hist {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		normalizeScores(entry, true)
	}
}

func normalizeScores(m map[string]any, historyEntry bool) {
	if m["objective_score"] == nil && m["score"] != nil {
		m["objective_score"] = m["score"]
	}
	if m["overall_score"] == nil {
		switch {
		case m["objective_score"] != nil:
			m["overall_score"] = m["objective_score"]
		case m["score"] != nil:
			m["overall_score"] = m["score"]
		}
	}
	if m["strict_score"] == nil && m["objective_strict"] != nil {
		m["strict_score"] = m["objective_strict"]
	}
	if m["verified_strict_score"] == nil && m["strict_score"] != nil {
		m["verified_strict_score"] = m["strict_score"]
	}

	if _, isMap := m["subjective_integrity"].(map[string]any); !isMap {
		legacy, hasLegacy := m["subjective_integrity_status"]
		switch {
		case hasLegacy && legacy != nil:
			m["subjective_integrity"] = map[string]any{"status": toString(legacy)}
		case historyEntry:
			delete(m, "subjective_integrity")
		default:
			m["subjective_integrity"] = map[string]any{}
		}
	}

	delete(m, "score")
	delete(m, "objective_strict")
	delete(m, "subjective_integrity_status")
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
