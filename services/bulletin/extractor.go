package bulletin

import (
	"regexp"
	"strings"
)

// ParseResult is the structured form of one bulletin page for one student.
// Validated=false means the expected student name was not found in the page
// text; in that case Subjects is empty and the result is unusable.
// OverallAverage and GlobalComment are optional — their anchors do not appear
// on every bulletin layout and their absence is not an error.
type ParseResult struct {
	StudentName    string          `json:"student_name"`
	OverallAverage string          `json:"overall_average,omitempty"`
	GlobalComment  string          `json:"global_comment,omitempty"`
	Subjects       []SubjectRecord `json:"subjects"`
	Validated      bool            `json:"validated"`
}

// ParseErrorLabels returns the labels of every subject whose average is the
// parse-error sentinel, in roster order.
func (p ParseResult) ParseErrorLabels() []string {
	var labels []string
	for _, s := range p.Subjects {
		if s.Status == GradeParseError {
			labels = append(labels, s.Label)
		}
	}
	return labels
}

// Fixed anchors of the bulletin layout. The grades table sits between
// "Appréciations" and "Moyenne générale"; the overall average and the global
// comment hang off their own markers.
var (
	overallAverageRe = regexp.MustCompile(`Moyenne générale\s+([\d,\.]+)`)
	globalCommentRe  = regexp.MustCompile(`(?s)Appréciation globale\s*:\s*(.+?)\nMentions`)
	gradesTableRe    = regexp.MustCompile(`(?s)Appréciations\n(.+?)\nMoyenne générale`)
)

// Extract converts a bulletin's decoded page text into a ParseResult guided
// by the caller's roster: the expected student name and the ordered subject
// labels as they literally appear in the document.
//
// Extraction never fails. A wrong document/student pairing comes back as
// Validated=false with no subjects, and any per-subject trouble surfaces as a
// sentinel record.
// Calling Extract twice on identical inputs yields identical results.
func Extract(text, studentName string, subjectLabels []string) ParseResult {
	result := ParseResult{StudentName: studentName, Subjects: []SubjectRecord{}}

	if !ContainsNormalized(text, studentName) {
		return result
	}
	result.Validated = true

	if m := overallAverageRe.FindStringSubmatch(text); m != nil {
		result.OverallAverage = strings.Replace(m[1], ",", ".", 1)
	}

	if m := globalCommentRe.FindStringSubmatch(text); m != nil {
		result.GlobalComment = collapseWhitespace(m[1])
	}

	var table string
	if m := gradesTableRe.FindStringSubmatch(text); m != nil {
		table = m[1]
	}

	for _, chunk := range SplitSubjects(table, subjectLabels) {
		result.Subjects = append(result.Subjects, ParseSubjectChunk(chunk))
	}
	return result
}
