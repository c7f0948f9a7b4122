package form

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinic/intake/internal/platform/cache"
	"github.com/clinic/intake/internal/platform/fault"
)

// TxRunner executes fn inside a database transaction. The context handed to
// fn carries the transaction, so repositories called through it join it
// automatically.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PassthroughTx runs fn with no transaction at all. Tests use it; production
// wires db.InTx.
func PassthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// PatientGateway is what the form engine needs to know about patients:
// existence, whether the acting user may touch this patient's records, and
// whether the patient's case still accepts writes.
type PatientGateway interface {
	Lookup(ctx context.Context, patientID uuid.UUID) error
	Authorize(ctx context.Context, actorID, patientID uuid.UUID) error
	CaseOpen(ctx context.Context, patientID uuid.UUID) error
}

// FinalizeHook runs after a filled form is successfully finalized, outside
// the submission transaction.
type FinalizeHook func(ctx context.Context, modelTitle string, f *FilledForm)

// Service coordinates template publishing, structure reads and patient
// submissions.
type Service struct {
	templates TemplateRepository
	instances InstanceRepository
	patients  PatientGateway
	cache     *cache.Cache
	inTx      TxRunner
	hooks     []FinalizeHook
}

func NewService(templates TemplateRepository, instances InstanceRepository, patients PatientGateway, c *cache.Cache, inTx TxRunner) *Service {
	if inTx == nil {
		inTx = PassthroughTx
	}
	return &Service{templates: templates, instances: instances, patients: patients, cache: c, inTx: inTx}
}

// OnFinalize registers a hook invoked after each successful finalization.
func (s *Service) OnFinalize(h FinalizeHook) {
	s.hooks = append(s.hooks, h)
}

func structureCacheKey(modelTitle string) string {
	return "form:structure:" + modelTitle
}

// PublishVersion creates a new version of the model from the nested
// definition and makes it the single active one. Deactivation and insertion
// happen in one transaction under a per-model advisory lock, so two
// concurrent publishes can never leave two active versions. Returns the
// materialized tree of the new version, generated ids included.
func (s *Service) PublishVersion(ctx context.Context, modelTitle string, in PublishInput) (*Tree, error) {
	model, err := s.templates.GetModelByTitle(ctx, modelTitle)
	if err != nil {
		return nil, err
	}
	version := &Version{ModelID: model.ID, Active: true}
	started := time.Now()
	var total int
	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.templates.LockModel(ctx, model.ID); err != nil {
			return err
		}
		if err := s.templates.DeactivateVersions(ctx, model.ID); err != nil {
			return err
		}
		if err := s.templates.CreateVersion(ctx, version); err != nil {
			return err
		}
		b := &treeBuilder{repo: s.templates}
		total, err = b.Build(ctx, version.ID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Delete(ctx, structureCacheKey(modelTitle))
	log.Info().
		Str("model", modelTitle).
		Str("version_id", version.ID.String()).
		Int("questions", total).
		Dur("took", time.Since(started)).
		Msg("form version published")
	rd := &treeReader{repo: s.templates}
	return rd.Read(ctx, version)
}

// ActiveTree returns the re-nested structure of the model's active version.
// Reads go through the structure cache; publishing invalidates it.
func (s *Service) ActiveTree(ctx context.Context, modelTitle string) (*Tree, error) {
	key := structureCacheKey(modelTitle)
	if data, ok := s.cache.Get(ctx, key); ok {
		var tree Tree
		if err := json.Unmarshal(data, &tree); err == nil {
			return &tree, nil
		}
		s.cache.Delete(ctx, key)
	}
	model, err := s.templates.GetModelByTitle(ctx, modelTitle)
	if err != nil {
		return nil, err
	}
	version, err := s.templates.GetActiveVersion(ctx, model.ID)
	if err != nil {
		return nil, err
	}
	rd := &treeReader{repo: s.templates}
	tree, err := rd.Read(ctx, version)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(tree); err == nil {
		s.cache.Set(ctx, key, data)
	}
	return tree, nil
}

// PatientForm returns the patient's form tree merged with their answers.
// The filled instance is created lazily here, on first read, pinned to the
// version that was active at that moment. There is exactly one instance per
// (patient, model): later publishes never spawn a second one, the instance
// keeps rendering against its pinned version.
func (s *Service) PatientForm(ctx context.Context, modelTitle string, actorID, patientID uuid.UUID) (*FilledTree, error) {
	if err := s.patients.Lookup(ctx, patientID); err != nil {
		return nil, err
	}
	if err := s.patients.Authorize(ctx, actorID, patientID); err != nil {
		return nil, err
	}
	model, err := s.templates.GetModelByTitle(ctx, modelTitle)
	if err != nil {
		return nil, err
	}
	filled, err := s.instances.GetFilledForm(ctx, patientID, model.ID)
	if fault.KindOf(err) == fault.KindNotFound {
		active, err := s.templates.GetActiveVersion(ctx, model.ID)
		if err != nil {
			return nil, err
		}
		filled = &FilledForm{
			PatientID: patientID,
			ModelID:   model.ID,
			VersionID: active.ID,
			Status:    StatusDraft,
		}
		if err := s.instances.CreateFilledForm(ctx, filled); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	version, err := s.templates.GetVersion(ctx, filled.VersionID)
	if err != nil {
		return nil, err
	}
	rd := &treeReader{repo: s.templates}
	return rd.ReadFilled(ctx, version, s.instances, filled)
}
