package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lmercier/bulletin-analyzer/model"
	"github.com/lmercier/bulletin-analyzer/services/bulletin"
	"github.com/lmercier/bulletin-analyzer/services/pipeline"
)

// DefaultCompletionSeparator delimits the assessment from its justifications
// in the completion output. It must be a line not otherwise expected in
// generated prose.
const DefaultCompletionSeparator = "--- JUSTIFICATIONS ---"

// PageTextExtractor decodes a document's first page into plain text.
type PageTextExtractor interface {
	ExtractFirstPage(content []byte) (string, error)
}

// Completer is the single-call text generation backend.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AnalysisService runs one bulletin analysis end to end: decode the PDF,
// parse the page against the roster, generate the global assessment, persist
// the Analysis row. It satisfies pipeline.Runner.
type AnalysisService struct {
	extractor PageTextExtractor
	completer Completer
	db        *gorm.DB
	separator string
}

// NewAnalysisService creates an analysis service. db may be nil, in which case
// no Analysis rows are written (outcomes still reach the result store).
func NewAnalysisService(extractor PageTextExtractor, completer Completer, db *gorm.DB, separator string) *AnalysisService {
	if separator == "" {
		separator = DefaultCompletionSeparator
	}
	return &AnalysisService{
		extractor: extractor,
		completer: completer,
		db:        db,
		separator: separator,
	}
}

// Run executes one job. Any returned error marks the job Failed with the
// error text as the outcome's summary.
func (s *AnalysisService) Run(ctx context.Context, jobID string, in pipeline.Input) (*model.AnalysisOutcome, error) {
	text, err := s.extractor.ExtractFirstPage(in.Document)
	if err != nil {
		return nil, fmt.Errorf("document extraction failed: %w", err)
	}

	result := bulletin.Extract(text, in.StudentName, in.SubjectLabels)
	if !result.Validated {
		return nil, fmt.Errorf("student name %q not found in the document", in.StudentName)
	}
	if bad := result.ParseErrorLabels(); len(bad) > 0 {
		return nil, fmt.Errorf("parsed %d of %d subjects, could not parse: %s",
			len(in.SubjectLabels)-len(bad), len(in.SubjectLabels), strings.Join(bad, ", "))
	}

	response, err := s.completer.Complete(ctx, systemPrompt, s.buildUserPrompt(result))
	if err != nil {
		return nil, fmt.Errorf("completion call failed: %w", err)
	}

	assessment, justification := s.splitResponse(response)

	outcome := &model.AnalysisOutcome{
		JobID:         jobID,
		StudentName:   in.StudentName,
		ParseResult:   &result,
		Assessment:    assessment,
		Justification: justification,
		CompletedAt:   time.Now(),
	}

	if s.db != nil {
		if err := s.persist(outcome, in.ClassGroupID); err != nil {
			// The outcome itself still reaches the result store; losing the
			// history row is worth a log line, not a failed job.
			log.Printf("AnalysisService: failed to persist analysis for job %s: %v", jobID, err)
		}
	}

	return outcome, nil
}

// splitResponse separates the assessment from its justifications. A response
// without the separator is treated as assessment only.
func (s *AnalysisService) splitResponse(response string) (assessment, justification string) {
	before, after, found := strings.Cut(response, s.separator)
	if !found {
		return strings.TrimSpace(response), ""
	}
	return strings.TrimSpace(before), strings.TrimSpace(after)
}

func (s *AnalysisService) persist(outcome *model.AnalysisOutcome, classGroupID *uint) error {
	raw, err := json.Marshal(outcome.ParseResult)
	if err != nil {
		return err
	}
	row := model.Analysis{
		JobID:         outcome.JobID,
		StudentName:   outcome.StudentName,
		Assessment:    outcome.Assessment,
		Justification: outcome.Justification,
		RawData:       datatypes.JSON(raw),
		ClassGroupID:  classGroupID,
	}
	return s.db.Create(&row).Error
}

const systemPrompt = "Tu es un professeur principal qui rédige l'appréciation générale. Ton style est synthétique, analytique et tu justifies tes conclusions."

// buildUserPrompt renders the per-subject data into the completion prompt.
// The instructions ask for two parts split by the configured separator line so
// the assessment can be shown alone while keeping its justifications
// auditable. The same separator is what splitResponse cuts on.
func (s *AnalysisService) buildUserPrompt(result bulletin.ParseResult) string {
	var lines []string
	for _, rec := range result.Subjects {
		average := rec.Average
		if !rec.Graded() {
			average = "non évalué"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", rec.Label, average, rec.Comment))
	}

	return fmt.Sprintf(`Voici les données de l'élève %s.
Données brutes :
%s
Ta réponse doit être en DEUX parties distinctes, séparées par la ligne "%s".
**Partie 1 : Appréciation Globale**
Rédige un paragraphe de 2 à 3 phrases pour le bulletin. Ce texte doit être synthétique, fluide et ne doit PAS mentionner la moyenne générale. Il doit identifier les tendances de fond (qualités, points d'amélioration) sans citer de matières spécifiques.
**Partie 2 : Justifications**
Sous le séparateur, justifie chaque idée clé de ta synthèse. Pour chaque point, cite les preuves exactes des commentaires des professeurs. Utilise le format suivant :
- **Idée synthétisée:** [Ex: L'élève fait preuve de sérieux.]
- **Preuves:**
- **[Nom de la matière]:** "[Citation exacte du commentaire]"
Rédige maintenant ta réponse complète.`, result.StudentName, strings.Join(lines, "\n"), s.separator)
}
