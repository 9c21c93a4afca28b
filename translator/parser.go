package translator

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ============================================================================
// RESPONSE PARSER — Extracts SQL from AI responses
// ============================================================================
// Models are asked for {"sql": "...", "reason": "..."} but regularly answer
// with fenced blocks or prose. Extraction tries, in order: a bare JSON
// envelope, JSON inside a fence, a fenced SQL block, then the text from the
// first SELECT/WITH keyword.
// ============================================================================

var (
	fencedBlock  = regexp.MustCompile("(?is)```(?:json|sql)?\\s*(.*?)```")
	statementKey = regexp.MustCompile(`(?i)\b(select|with)\b`)
	sqlPrefix    = regexp.MustCompile(`(?i)^(sqlquery|sql)\s*:\s*`)
)

type envelope struct {
	SQL    string `json:"sql"`
	Reason string `json:"reason"`
}

// ExtractSQL pulls SQL (and the model's reason, when present) out of text.
// It returns empty strings when nothing usable is found.
func ExtractSQL(text string) (sql, reason string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}

	if env, ok := parseEnvelope(text); ok {
		return env.SQL, env.Reason
	}

	blocks := fencedBlock.FindAllStringSubmatch(text, -1)
	for _, b := range blocks {
		if env, ok := parseEnvelope(b[1]); ok {
			return env.SQL, env.Reason
		}
	}
	for _, b := range blocks {
		candidate := strings.TrimSpace(b[1])
		if startsWithStatement(candidate) {
			return candidate, ""
		}
	}

	if loc := statementKey.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(strings.TrimRight(text[loc[0]:], "`")), ""
	}
	return "", ""
}

func parseEnvelope(text string) (envelope, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &env); err != nil {
		return envelope{}, false
	}
	env.SQL = strings.TrimSpace(env.SQL)
	return env, env.SQL != ""
}

func startsWithStatement(s string) bool {
	lowered := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lowered, "select") || strings.HasPrefix(lowered, "with")
}

// NormalizeSQL strips code fences, "SQL:"/"SQLQuery:" prefixes and
// trailing semicolons.
func NormalizeSQL(sql string) string {
	s := strings.TrimSpace(sql)
	if strings.HasPrefix(s, "```") {
		s = strings.Trim(s, "`")
		s = strings.TrimSpace(s)
		if len(s) >= 3 && strings.EqualFold(s[:3], "sql") {
			s = s[3:]
		}
		s = strings.TrimSpace(s)
	}
	s = sqlPrefix.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	return s
}
