package report

import "strings"

// SplitConditions turns comma-separated free text into trimmed, non-empty
// condition names. A comma inside a name cannot be expressed.
func SplitConditions(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// JoinConditions is the inverse used on load.
func JoinConditions(names []string) string {
	return strings.Join(names, ", ")
}

// conditionRows builds the rows persisted for the two free-text fields.
func conditionRows(dc DiagnosticCriteria) []DifferentialRow {
	var rows []DifferentialRow
	for i, n := range SplitConditions(dc.DifferentialDiagnosis) {
		rows = append(rows, DifferentialRow{Type: TypeDifferential, ConditionName: n, Position: i})
	}
	for i, n := range SplitConditions(dc.Comorbidities) {
		rows = append(rows, DifferentialRow{Type: TypeComorbidity, ConditionName: n, Position: i})
	}
	return rows
}

// conditionTexts reassembles both fields from rows in fetch order.
func conditionTexts(rows []DifferentialRow) (differential, comorbidities string) {
	var d, c []string
	for _, r := range rows {
		switch r.Type {
		case TypeDifferential:
			d = append(d, r.ConditionName)
		case TypeComorbidity:
			c = append(c, r.ConditionName)
		}
	}
	return JoinConditions(d), JoinConditions(c)
}
