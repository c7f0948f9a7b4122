package form

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/intake/internal/platform/auth"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Structure reads – any clinical role
	readGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleProfessional, auth.RoleReceptionist))
	readGroup.GET("/forms/:model/structure", h.GetStructure)

	// Template publishing – admin only
	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/forms/:model/structure", h.PublishStructure)

	// Patient instances – professionals and admins
	clinicalGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleProfessional))
	clinicalGroup.GET("/forms/:model/patients/:patientId", h.GetPatientForm)
	clinicalGroup.POST("/forms/:model/patients/:patientId/answers", h.SubmitAnswers)
}

// modelParam normalizes the :model path segment to the catalog spelling.
func modelParam(c echo.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("model")))
}

func (h *Handler) PublishStructure(c echo.Context) error {
	var in PublishInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	for _, sec := range in.Sections {
		if err := checkOptionPairing(sec.Questions); err != nil {
			return err
		}
	}
	tree, err := h.svc.PublishVersion(c.Request().Context(), modelParam(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tree)
}

// checkOptionPairing rejects definitions where the question kind and the
// option list disagree. The engine itself accepts them, so the check lives
// here at the edge with the rest of the payload validation.
func checkOptionPairing(questions []QuestionInput) error {
	for _, q := range questions {
		if !q.Kind.IsChoice() && len(q.Options) > 0 {
			return echo.NewHTTPError(http.StatusBadRequest,
				"question kind "+string(q.Kind)+" does not take options")
		}
		if q.Kind.IsChoice() && len(q.Options) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest,
				"question kind "+string(q.Kind)+" requires at least one option")
		}
		for _, o := range q.Options {
			if err := checkOptionPairing(o.DerivedQuestions); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) GetStructure(c echo.Context) error {
	tree, err := h.svc.ActiveTree(c.Request().Context(), modelParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tree)
}

func (h *Handler) GetPatientForm(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	tree, err := h.svc.PatientForm(c.Request().Context(), modelParam(c), auth.ActorIDFromContext(c.Request().Context()), patientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tree)
}

func (h *Handler) SubmitAnswers(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var in SubmitInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.validate.Struct(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.Submit(c.Request().Context(), modelParam(c), auth.ActorIDFromContext(c.Request().Context()), patientID, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
