package bulletin

import (
	"reflect"
	"testing"
)

const sampleBulletin = `Collège Jean Moulin
Bulletin du 2ème trimestre
Jean Dupont
Né le 12/03/2011
Appréciations
MATH M. DURAND 14,50 13,20 sérieux et appliqué ANGLAIS Mme ROUX 9,00 11,40 manque de participation
Moyenne générale 12,30
Appréciation globale : Un trimestre
satisfaisant dans l'ensemble.
Mentions
Félicitations du conseil de classe`

func TestExtract(t *testing.T) {
	result := Extract(sampleBulletin, "Jean Dupont", []string{"MATH", "ANGLAIS"})

	if !result.Validated {
		t.Fatal("expected validated result")
	}
	if result.OverallAverage != "12.30" {
		t.Errorf("overall average = %q, want 12.30", result.OverallAverage)
	}
	if result.GlobalComment != "Un trimestre satisfaisant dans l'ensemble." {
		t.Errorf("global comment = %q", result.GlobalComment)
	}

	want := []SubjectRecord{
		{Label: "MATH", Status: GradeOK, Average: "14.50", Comment: "sérieux et appliqué"},
		{Label: "ANGLAIS", Status: GradeOK, Average: "9.00", Comment: "manque de participation"},
	}
	if !reflect.DeepEqual(result.Subjects, want) {
		t.Errorf("subjects:\n got %+v\nwant %+v", result.Subjects, want)
	}
}

func TestExtractNameMismatchFailsFast(t *testing.T) {
	doc := `Paul Durand
Né le 01/01/2011
Appréciations
MATH 14,50 13,20 bien
Moyenne générale 14,50`

	result := Extract(doc, "Paul Martin", []string{"MATH"})

	if result.Validated {
		t.Fatal("expected validated=false for a wrong student/document pairing")
	}
	if len(result.Subjects) != 0 {
		t.Errorf("no subjects should be parsed on a failed name check, got %d", len(result.Subjects))
	}
	if result.OverallAverage != "" || result.GlobalComment != "" {
		t.Error("no metadata should be extracted on a failed name check")
	}
}

func TestExtractNameToleratesFormatting(t *testing.T) {
	// Same normalized form: diacritics, case and punctuation in either the
	// roster or the document never affect validation.
	doc := "Bulletin de ÉLÉONORE LEFÈVRE\nNé le 02/02/2011\n"
	if !Extract(doc, "eleonore lefevre", nil).Validated {
		t.Error("normalized name containment should validate")
	}
}

func TestExtractMissingSubjectYieldsParseError(t *testing.T) {
	doc := `Jean Dupont
Appréciations
MATH 14,50 13,20 bien ANGLAIS 9,00 11,40 moyen
Moyenne générale 12,30`

	result := Extract(doc, "Jean Dupont", []string{"MATH", "ANGLAIS", "HISTOIRE"})

	if len(result.Subjects) != 3 {
		t.Fatalf("expected 3 records for 3 labels, got %d", len(result.Subjects))
	}
	if result.Subjects[2].Status != GradeParseError {
		t.Errorf("missing label should yield a parse-error record, got %+v", result.Subjects[2])
	}
	if got := result.ParseErrorLabels(); len(got) != 1 || got[0] != "HISTOIRE" {
		t.Errorf("ParseErrorLabels() = %v, want [HISTOIRE]", got)
	}
}

func TestExtractWithoutAnchors(t *testing.T) {
	// A page with the student name but none of the layout anchors still
	// yields a validated result: metadata is optional, subjects degrade to
	// parse-error sentinels.
	result := Extract("un document qui mentionne Jean Dupont sans tableau", "Jean Dupont", []string{"MATH"})

	if !result.Validated {
		t.Fatal("name is present, result should be validated")
	}
	if result.OverallAverage != "" || result.GlobalComment != "" {
		t.Error("absent anchors must not produce metadata")
	}
	if len(result.Subjects) != 1 || result.Subjects[0].Status != GradeParseError {
		t.Errorf("subjects = %+v", result.Subjects)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	labels := []string{"MATH", "ANGLAIS"}
	first := Extract(sampleBulletin, "Jean Dupont", labels)
	second := Extract(sampleBulletin, "Jean Dupont", labels)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("two extractions of identical input differ:\n%+v\n%+v", first, second)
	}
}
