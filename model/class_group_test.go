package model

import (
	"reflect"
	"testing"
)

func TestClassGroupSubjectList(t *testing.T) {
	tests := []struct {
		name     string
		subjects string
		want     []string
	}{
		{"ordered list", "MATHÉMATIQUES, ANGLAIS LV1, EPS", []string{"MATHÉMATIQUES", "ANGLAIS LV1", "EPS"}},
		{"extra whitespace", "  MATH ,, ANGLAIS  ", []string{"MATH", "ANGLAIS"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ClassGroup{Subjects: tt.subjects}
			if got := g.SubjectList(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SubjectList() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassGroupStudentList(t *testing.T) {
	g := ClassGroup{Students: "Jean Dupont\n\n  Marie Lefèvre  \nPaul Martin"}
	want := []string{"Jean Dupont", "Marie Lefèvre", "Paul Martin"}
	if got := g.StudentList(); !reflect.DeepEqual(got, want) {
		t.Errorf("StudentList() = %v, want %v", got, want)
	}
}

func TestAnalysisOutcomeFailed(t *testing.T) {
	if (&AnalysisOutcome{Assessment: "ok"}).Failed() {
		t.Error("success outcome reported as failed")
	}
	if !(&AnalysisOutcome{ErrorSummary: "boom"}).Failed() {
		t.Error("failure outcome not reported as failed")
	}
}
