package form

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/intake/internal/platform/fault"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo, uuid.UUID) {
	t.Helper()
	svc, _, _, _, patientID := newTestService(t)
	h := NewHandler(svc)
	e := echo.New()
	return h, e, patientID
}

const publishBody = `{
	"secoes": [{
		"titulo": "Historico",
		"perguntas": [{
			"enunciado": "Sente dor?",
			"tipo": "single-choice",
			"obrigatoria": true,
			"opcoes": [
				{"enunciado": "Sim", "perguntasDerivadas": [
					{"enunciado": "Onde doi?", "tipo": "short-text", "obrigatoria": true}
				]},
				{"enunciado": "Nao", "ordem": 1}
			]
		}]
	}]
}`

func publishVia(t *testing.T, h *Handler, e *echo.Echo, model string) *Tree {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(publishBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("model")
	c.SetParamValues(model)
	if err := h.PublishStructure(c); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var tree Tree
	if err := json.Unmarshal(rec.Body.Bytes(), &tree); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	return &tree
}

func TestHandler_PublishStructure(t *testing.T) {
	h, e, _ := newTestHandler(t)
	v := publishVia(t, h, e, "anamnese")
	if !v.Version.Active {
		t.Error("published version should be active")
	}
	// The response is the materialized tree with generated ids.
	if len(v.Sections) != 1 || v.Sections[0].Title != "Historico" {
		t.Fatalf("expected the published sections back, got %+v", v.Sections)
	}
	q := v.Sections[0].Questions[0]
	if q.ID == uuid.Nil || len(q.Options) != 2 {
		t.Fatal("generated question/option ids missing from publish response")
	}
}

func TestHandler_PublishStructure_ChoiceWithoutOptions(t *testing.T) {
	h, e, _ := newTestHandler(t)
	body := `{"secoes":[{"titulo":"S","perguntas":[
		{"enunciado":"Q","tipo":"single-choice","obrigatoria":true}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("model")
	c.SetParamValues("anamnese")

	err := h.PublishStructure(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for choice without options, got %v", err)
	}
}

func TestHandler_PublishStructure_OptionsOnTextQuestion(t *testing.T) {
	h, e, _ := newTestHandler(t)
	body := `{"secoes":[{"titulo":"S","perguntas":[
		{"enunciado":"Q","tipo":"short-text","opcoes":[{"enunciado":"O"}]}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("model")
	c.SetParamValues("anamnese")

	err := h.PublishStructure(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for options on a text question, got %v", err)
	}
}

func TestHandler_PublishStructure_EmptySections(t *testing.T) {
	h, e, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"secoes":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("model")
	c.SetParamValues("anamnese")

	err := h.PublishStructure(c)
	if err == nil {
		t.Fatal("expected validation error for empty sections")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_GetStructure(t *testing.T) {
	h, e, _ := newTestHandler(t)
	publishVia(t, h, e, "anamnese")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("model")
	c.SetParamValues("anamnese")

	if err := h.GetStructure(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var tree Tree
	if err := json.Unmarshal(rec.Body.Bytes(), &tree); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	if len(tree.Sections) != 1 || tree.Sections[0].Title != "Historico" {
		t.Errorf("unexpected tree: %s", rec.Body.String())
	}
}

func TestHandler_GetStructure_UnknownModel(t *testing.T) {
	h, e, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("model")
	c.SetParamValues("nope")

	err := h.GetStructure(c)
	if fault.KindOf(err) != fault.KindNotFound {
		t.Fatalf("expected not_found fault, got %v", err)
	}
}

func TestHandler_GetPatientForm(t *testing.T) {
	h, e, patientID := newTestHandler(t)
	publishVia(t, h, e, "anamnese")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("model", "patientId")
	c.SetParamValues("anamnese", patientID.String())

	if err := h.GetPatientForm(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var ft FilledTree
	if err := json.Unmarshal(rec.Body.Bytes(), &ft); err != nil {
		t.Fatalf("decode filled tree: %v", err)
	}
	if ft.Status != StatusDraft {
		t.Errorf("expected draft, got %s", ft.Status)
	}
}

func TestHandler_GetPatientForm_BadID(t *testing.T) {
	h, e, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("model", "patientId")
	c.SetParamValues("anamnese", "not-a-uuid")

	err := h.GetPatientForm(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_SubmitAnswers(t *testing.T) {
	h, e, patientID := newTestHandler(t)
	v := publishVia(t, h, e, "anamnese")

	// Open the instance first.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("model", "patientId")
	c.SetParamValues("anamnese", patientID.String())
	if err := h.GetPatientForm(c); err != nil {
		t.Fatalf("open form: %v", err)
	}
	var ft FilledTree
	if err := json.Unmarshal(rec.Body.Bytes(), &ft); err != nil {
		t.Fatalf("decode filled tree: %v", err)
	}
	qID := ft.Sections[0].Questions[0].ID
	optNao := ft.Sections[0].Questions[0].Options[1].ID

	body, _ := json.Marshal(SubmitInput{
		VersionID: v.Version.ID,
		Finalize:  true,
		Answers: []AnswerInput{{
			QuestionID: qID,
			Options:    []SelectedOptionInput{{ID: optNao}},
		}},
	})
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("model", "patientId")
	c.SetParamValues("anamnese", patientID.String())

	if err := h.SubmitAnswers(c); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		FilledForm
		Missing []uuid.UUID `json:"missing"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode submit result: %v", err)
	}
	if result.Status != StatusFinalized || result.CompletionPercentage != 100 {
		t.Errorf("expected finalized at 100%%, got %s %d%%", result.Status, result.CompletionPercentage)
	}
	if result.Missing == nil || len(result.Missing) != 0 {
		t.Errorf("expected an empty missing list, got %v", result.Missing)
	}
}

// A draft save reports the unanswered mandatory questions in the body.
func TestHandler_SubmitAnswers_ReportsMissing(t *testing.T) {
	h, e, patientID := newTestHandler(t)
	v := publishVia(t, h, e, "anamnese")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("model", "patientId")
	c.SetParamValues("anamnese", patientID.String())
	if err := h.GetPatientForm(c); err != nil {
		t.Fatalf("open form: %v", err)
	}

	body, _ := json.Marshal(SubmitInput{VersionID: v.Version.ID})
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(string(body)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("model", "patientId")
	c.SetParamValues("anamnese", patientID.String())
	if err := h.SubmitAnswers(c); err != nil {
		t.Fatalf("submit: %v", err)
	}

	var result struct {
		Missing []uuid.UUID `json:"missing"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode submit result: %v", err)
	}
	rootID := v.Sections[0].Questions[0].ID
	if len(result.Missing) != 1 || result.Missing[0] != rootID {
		t.Fatalf("expected the mandatory root in missing, got %v (%s)", result.Missing, rec.Body.String())
	}
}
