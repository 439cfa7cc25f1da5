package bulletin

import (
	"regexp"
	"strings"
)

// GradeStatus tells whether a subject's average is a real number or one of
// the sentinel values standing in for a missing/invalid grade.
type GradeStatus string

const (
	GradeOK         GradeStatus = "graded"
	GradeNotGraded  GradeStatus = "not_graded"
	GradeParseError GradeStatus = "parse_error"
)

// NotEvaluatedComment is the fixed comment paired with a GradeNotGraded
// average.
const NotEvaluatedComment = "not evaluated this term"

// SubjectRecord is the structured result for a single subject: the student's
// own average (dot decimal separator) or a sentinel, plus the cleaned
// qualitative comment left by the teacher.
type SubjectRecord struct {
	Label   string      `json:"label"`
	Status  GradeStatus `json:"status"`
	Average string      `json:"average,omitempty"`
	Comment string      `json:"comment"`
}

// Graded reports whether the record carries a real numeric average.
func (r SubjectRecord) Graded() bool { return r.Status == GradeOK }

var (
	// Teacher-name annotations like "M. DURAND" or "Mme LEFÈVRE-PETIT":
	// title token followed by one or more all-caps name tokens.
	teacherNameRe = regexp.MustCompile(`(?:M\.|Mme|Mlle)\s+\p{Lu}[\p{Lu}\-']+(?:\s+\p{Lu}[\p{Lu}\-']+)*`)

	// The student's average: one or two integer digits, comma or dot,
	// exactly two fraction digits. The student's grade is always the first
	// number of this shape in a chunk, ahead of the class figures.
	gradeRe = regexp.MustCompile(`\d{1,2}[,.]\d{2}`)

	// Class average and class min/max figures that trail the student's
	// grade: a leading run of digits, separators and slashes.
	leadingFiguresRe = regexp.MustCompile(`^[\d\s,./]*`)

	// Residual grade fractions embedded mid-sentence, e.g. "4/4 15,20".
	inlineFractionRe = regexp.MustCompile(`\s*\d*/\d+\s*[\d,\s.]*`)
)

// ParseSubjectChunk converts one grades-table chunk into a SubjectRecord.
// It never fails: a chunk it cannot make sense of yields a GradeParseError
// record with whatever comment text survives cleanup, so partial information
// is preserved for manual review. A chunk with Found=false (the label never
// occurred in the table) yields a bare GradeParseError record.
func ParseSubjectChunk(c Chunk) SubjectRecord {
	rec := SubjectRecord{Label: c.Label}

	if !c.Found {
		rec.Status = GradeParseError
		return rec
	}

	// Teacher names are incidental metadata, never part of the comment.
	text := teacherNameRe.ReplaceAllString(c.Text, "")

	if strings.Contains(text, "N.Not") || strings.Contains(text, "non évalué") {
		rec.Status = GradeNotGraded
		rec.Comment = NotEvaluatedComment
		return rec
	}

	loc := gradeRe.FindStringIndex(text)
	if loc == nil {
		rec.Status = GradeParseError
		rec.Comment = collapseWhitespace(leadingFiguresRe.ReplaceAllString(strings.TrimSpace(text), ""))
		return rec
	}

	rec.Status = GradeOK
	rec.Average = strings.Replace(text[loc[0]:loc[1]], ",", ".", 1)

	comment := strings.TrimSpace(text[loc[1]:])
	comment = leadingFiguresRe.ReplaceAllString(comment, "")
	comment = inlineFractionRe.ReplaceAllString(comment, " ")
	rec.Comment = collapseWhitespace(comment)
	return rec
}

// collapseWhitespace squashes every whitespace run into a single space and
// trims the ends.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
