package report

import "strings"

const (
	// PreviewThreshold is the minimum percentage for a preview.
	PreviewThreshold = 60
	// FinalThreshold is the minimum percentage for final generation.
	FinalThreshold = 80

	trackedBlocks = 4
)

// Progress is the completion state of a draft. Identification is always
// complete and does not count toward Percent.
type Progress struct {
	Identification      bool `json:"identification"`
	History             bool `json:"history"`
	ClinicalObservation bool `json:"clinical_observation"`
	AppliedInstruments  bool `json:"applied_instruments"`
	DiagnosticCriteria  bool `json:"diagnostic_criteria"`
	Completed           int  `json:"completed_blocks"`
	Percent             int  `json:"percent"`
}

func anyText(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return true
		}
	}
	return false
}

// Evaluate computes block completion for d.
func Evaluate(d Draft) Progress {
	h, o, dc := d.History, d.ClinicalObservation, d.DiagnosticCriteria
	p := Progress{
		Identification: true,
		History: anyText(h.PregnancyComplications, h.DevelopmentalMilestones,
			h.MedicalHistory, h.FamilyHistory),
		ClinicalObservation: anyText(o.VerbalCommunication, o.NonverbalCommunication,
			o.SocialInteraction, o.RepetitiveBehaviors, o.SensorySensitivities),
		AppliedInstruments: len(d.AppliedInstruments) > 0,
		DiagnosticCriteria: len(dc.MetCriteria()) > 0 ||
			strings.TrimSpace(dc.DifferentialDiagnosis) != "" ||
			strings.TrimSpace(dc.Comorbidities) != "",
	}
	for _, done := range []bool{p.History, p.ClinicalObservation, p.AppliedInstruments, p.DiagnosticCriteria} {
		if done {
			p.Completed++
		}
	}
	p.Percent = percent(p.Completed, trackedBlocks)
	return p
}

// percent rounds 100*n/total half up in integer arithmetic.
func percent(n, total int) int {
	return (200*n + total) / (2 * total)
}

func (p Progress) AllowsPreview() bool { return p.Percent >= PreviewThreshold }
func (p Progress) AllowsFinal() bool   { return p.Percent >= FinalThreshold }

// CriteriaSummary counts the marked DSM-5 criteria per group. Meets is the
// A>=2 and B>=2 threshold shown beside the checklist; it gates nothing.
type CriteriaSummary struct {
	AMet   int  `json:"a_met"`
	ATotal int  `json:"a_total"`
	BMet   int  `json:"b_met"`
	BTotal int  `json:"b_total"`
	Meets  bool `json:"meets_threshold"`
}

const minPerGroup = 2

func SummarizeCriteria(dc DiagnosticCriteria) CriteriaSummary {
	var s CriteriaSummary
	for _, c := range Criteria {
		switch c.Group() {
		case 'A':
			s.ATotal++
			if dc.Met(c) {
				s.AMet++
			}
		case 'B':
			s.BTotal++
			if dc.Met(c) {
				s.BMet++
			}
		}
	}
	s.Meets = s.AMet >= minPerGroup && s.BMet >= minPerGroup
	return s
}
