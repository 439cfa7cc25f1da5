package analysis

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lmercier/bulletin-analyzer/model"
	"github.com/lmercier/bulletin-analyzer/services/pipeline"
	"github.com/lmercier/bulletin-analyzer/utils/response"
)

// AnalysisHandler submits bulletin analyses to the pipeline and answers
// status and history queries.
type AnalysisHandler struct {
	db       *gorm.DB
	pipeline *pipeline.Pipeline
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(db *gorm.DB, p *pipeline.Pipeline) *AnalysisHandler {
	return &AnalysisHandler{
		db:       db,
		pipeline: p,
	}
}

// SubmissionResult reports the outcome of enqueueing one file
type SubmissionResult struct {
	FileName    string `json:"file_name"`
	StudentName string `json:"student_name"`
	JobID       string `json:"job_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SubmitBatch handles POST /analyses. The multipart form carries the bulletin
// PDFs under "bulletins" and the matching student names under "students":
// file i is analyzed for student i. The roster's subject labels come either
// from the referenced class group or from a comma-separated "subjects" field.
func (h *AnalysisHandler) SubmitBatch(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return response.BadRequest(c, "Expected a multipart form")
	}

	files := form.File["bulletins"]
	if len(files) == 0 {
		return response.BadRequest(c, "No bulletin files provided")
	}

	students := form.Value["students"]
	if len(students) != len(files) {
		return response.BadRequest(c, "The number of student names must match the number of files")
	}

	subjects, classGroupID, err := h.resolveRoster(c, form.Value)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	results := make([]SubmissionResult, 0, len(files))
	for i, fileHeader := range files {
		res := SubmissionResult{FileName: fileHeader.Filename, StudentName: students[i]}

		document, err := readMultipartFile(fileHeader)
		if err != nil {
			res.Error = "failed to read uploaded file"
			results = append(results, res)
			continue
		}

		jobID, err := h.pipeline.Submit(c.Context(), pipeline.Input{
			Document:      document,
			StudentName:   students[i],
			SubjectLabels: subjects,
			ClassGroupID:  classGroupID,
		})
		if err != nil {
			// A full queue will stay full for the rest of the batch.
			if errors.Is(err, pipeline.ErrQueueFull) {
				return response.TooManyRequests(c, "Analysis queue is full, retry later")
			}
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		res.JobID = jobID
		results = append(results, res)
	}

	return response.Accepted(c, results)
}

// resolveRoster picks the subject labels from the class group when one is
// referenced, otherwise from the form's "subjects" field.
func (h *AnalysisHandler) resolveRoster(c *fiber.Ctx, values map[string][]string) ([]string, *uint, error) {
	if raw := firstValue(values, "class_group_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nil, errors.New("invalid class_group_id")
		}

		var group model.ClassGroup
		if err := h.db.First(&group, id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, nil, errors.New("class group not found")
			}
			return nil, nil, errors.New("failed to load class group")
		}

		subjects := group.SubjectList()
		if len(subjects) == 0 {
			return nil, nil, errors.New("class group has no subjects configured")
		}
		gid := group.ID
		return subjects, &gid, nil
	}

	subjects := splitCommaList(firstValue(values, "subjects"))
	if len(subjects) == 0 {
		return nil, nil, errors.New("provide either class_group_id or a subjects list")
	}
	return subjects, nil, nil
}

// StatusRequest is the body of a batch status query
type StatusRequest struct {
	JobIDs []string `json:"job_ids"`
}

// Status handles POST /analyses/status. Unknown ids come back with the
// not_found state rather than failing the whole query.
func (h *AnalysisHandler) Status(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.JobIDs) == 0 {
		return response.BadRequest(c, "job_ids is required")
	}

	results := make([]pipeline.StatusResult, 0, len(req.JobIDs))
	for _, id := range req.JobIDs {
		results = append(results, h.pipeline.Status(c.Context(), id))
	}

	return response.Success(c, results)
}

// History handles GET /analyses: persisted analyses, newest first, optionally
// filtered by class group.
func (h *AnalysisHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := h.db.Order("created_at DESC").Limit(limit)
	if raw := c.Query("class_group_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return response.BadRequest(c, "invalid class_group_id")
		}
		query = query.Where("class_group_id = ?", id)
	}

	var analyses []model.Analysis
	if err := query.Find(&analyses).Error; err != nil {
		return response.InternalServerError(c, "Failed to load analyses")
	}

	return response.Success(c, analyses)
}

// GetAnalysis handles GET /analyses/:job_id, serving the persisted row.
func (h *AnalysisHandler) GetAnalysis(c *fiber.Ctx) error {
	jobID := c.Params("job_id")

	var analysis model.Analysis
	if err := h.db.Where("job_id = ?", jobID).First(&analysis).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Analysis not found")
		}
		return response.InternalServerError(c, "Failed to load analysis")
	}

	return response.Success(c, analysis)
}

func firstValue(values map[string][]string, key string) string {
	if v, ok := values[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func splitCommaList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func readMultipartFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
