package classgroup

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/lmercier/bulletin-analyzer/model"
	"github.com/lmercier/bulletin-analyzer/utils/response"
	"github.com/lmercier/bulletin-analyzer/utils/validation"
)

// ClassGroupHandler manages class roster CRUD
type ClassGroupHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewClassGroupHandler creates a new class group handler
func NewClassGroupHandler(db *gorm.DB) *ClassGroupHandler {
	return &ClassGroupHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// ClassGroupRequest is the create/update payload. Subjects are ordered and
// must match the labels exactly as printed on the class's bulletins.
type ClassGroupRequest struct {
	SchoolYear string   `json:"school_year" validate:"required,max=10"`
	Name       string   `json:"name" validate:"required,max=50"`
	Subjects   []string `json:"subjects" validate:"required,min=1,dive,required"`
	Students   []string `json:"students" validate:"required,min=1,dive,required"`
}

// ClassGroupResponse is the API shape of a class group
type ClassGroupResponse struct {
	ID         uint     `json:"id"`
	SchoolYear string   `json:"school_year"`
	Name       string   `json:"name"`
	Subjects   []string `json:"subjects"`
	Students   []string `json:"students"`
}

func toResponse(g *model.ClassGroup) ClassGroupResponse {
	return ClassGroupResponse{
		ID:         g.ID,
		SchoolYear: g.SchoolYear,
		Name:       g.Name,
		Subjects:   g.SubjectList(),
		Students:   g.StudentList(),
	}
}

// CreateClassGroup handles POST /class-groups
func (h *ClassGroupHandler) CreateClassGroup(c *fiber.Ctx) error {
	var req ClassGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	group := model.ClassGroup{
		SchoolYear: validation.SanitizeString(req.SchoolYear),
		Name:       validation.SanitizeString(req.Name),
		Subjects:   joinClean(req.Subjects, ", "),
		Students:   joinClean(req.Students, "\n"),
	}

	if err := h.db.Create(&group).Error; err != nil {
		return response.InternalServerError(c, "Failed to create class group")
	}

	return response.Created(c, toResponse(&group))
}

// ListClassGroups handles GET /class-groups
func (h *ClassGroupHandler) ListClassGroups(c *fiber.Ctx) error {
	var groups []model.ClassGroup
	query := h.db.Order("school_year DESC, name ASC")

	if year := c.Query("school_year"); year != "" {
		query = query.Where("school_year = ?", year)
	}

	if err := query.Find(&groups).Error; err != nil {
		return response.InternalServerError(c, "Failed to list class groups")
	}

	out := make([]ClassGroupResponse, 0, len(groups))
	for i := range groups {
		out = append(out, toResponse(&groups[i]))
	}

	return response.Success(c, out)
}

// GetClassGroup handles GET /class-groups/:id
func (h *ClassGroupHandler) GetClassGroup(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid class group id")
	}

	var group model.ClassGroup
	if err := h.db.First(&group, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Class group not found")
		}
		return response.InternalServerError(c, "Failed to load class group")
	}

	return response.Success(c, toResponse(&group))
}

// UpdateClassGroup handles PUT /class-groups/:id
func (h *ClassGroupHandler) UpdateClassGroup(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid class group id")
	}

	var req ClassGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var group model.ClassGroup
	if err := h.db.First(&group, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Class group not found")
		}
		return response.InternalServerError(c, "Failed to load class group")
	}

	group.SchoolYear = validation.SanitizeString(req.SchoolYear)
	group.Name = validation.SanitizeString(req.Name)
	group.Subjects = joinClean(req.Subjects, ", ")
	group.Students = joinClean(req.Students, "\n")

	if err := h.db.Save(&group).Error; err != nil {
		return response.InternalServerError(c, "Failed to update class group")
	}

	return response.Success(c, toResponse(&group))
}

// DeleteClassGroup handles DELETE /class-groups/:id
func (h *ClassGroupHandler) DeleteClassGroup(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid class group id")
	}

	result := h.db.Delete(&model.ClassGroup{}, id)
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete class group")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Class group not found")
	}

	return response.NoContent(c)
}

func joinClean(parts []string, sep string) string {
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, sep)
}
