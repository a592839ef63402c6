// Package wizard drives one issuance through DATA, LOCATION, PHOTOS, REVIEW and
// CONFIRM. The controller keeps a working copy of the form and the captured photos,
// validates before every forward move and commits each step to the session store
// before moving on.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	issuanceMetrics "policydesk/internal/issuance/metrics"
	"policydesk/internal/issuance/models"
	"policydesk/internal/issuance/validator"
	"policydesk/internal/notify"
	"policydesk/internal/photo"
	policyModels "policydesk/internal/policy/models"
	quoteModels "policydesk/internal/quote/models"
	"policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/requestcontext"
)

// ErrBusy rejects an operation while a step commit or issuance is still running.
var ErrBusy = dErrors.New(dErrors.CodeConflict, "Hay una operación en curso, espera a que termine.")

// Sessions is the session store contract the controller commits to.
type Sessions interface {
	UpdateStep(ctx context.Context, id domain.SessionID, update models.StepUpdate) (*models.Session, error)
	UploadPhoto(ctx context.Context, id domain.SessionID, p photo.Prepared) (*models.PhotoRecord, error)
	IssuePolicy(ctx context.Context, id domain.SessionID) (*policyModels.Policy, error)
}

// Controller is the state machine of one issuance session.
//
// Invariants:
//   - step only moves forward after the validator passed and the store accepted the commit
//   - at most one Advance, ConfirmIssue or edit runs at a time
//   - ISSUED is reached only from CONFIRM through ConfirmIssue
type Controller struct {
	busy    sync.Mutex
	running atomic.Bool
	mu      sync.Mutex

	sessions Sessions
	sink     notify.Sink
	previews photo.Previews
	downsize photo.DownsizeOptions
	metrics  *issuanceMetrics.Metrics
	logger   *slog.Logger

	quote        quoteModels.Quote
	sessionID    domain.SessionID
	requirements []models.PhotoRequirement

	step    models.Step
	form    models.FormData
	dirty   bool
	slots   map[string]*photo.Slot
	pending map[string]bool
	records map[string]models.PhotoRecord
	policy  *policyModels.Policy
	closed  bool
}

type Option func(*Controller)

func WithSink(s notify.Sink) Option {
	return func(c *Controller) {
		c.sink = s
	}
}

func WithPreviews(p photo.Previews) Option {
	return func(c *Controller) {
		c.previews = p
	}
}

func WithDownsize(opts photo.DownsizeOptions) Option {
	return func(c *Controller) {
		c.downsize = opts
	}
}

func WithMetrics(m *issuanceMetrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New builds a controller over a persisted session. It resumes at the session's
// stored step with the stored form and uploaded photos.
func New(q *quoteModels.Quote, sess *models.Session, sessions Sessions, opts ...Option) (*Controller, error) {
	if q == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "wizard requires a quote")
	}
	if sess == nil || sess.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "wizard requires an issuance session")
	}
	if sess.QuoteID != q.ID {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session belongs to another quote")
	}

	c := &Controller{
		sessions:     sessions,
		sink:         notify.Fanout{},
		downsize:     photo.DefaultDownsizeOptions(),
		logger:       slog.Default(),
		quote:        *q,
		sessionID:    sess.ID,
		requirements: models.PhotoRequirements(sess.ProductType),
		step:         sess.CurrentStep,
		form:         sess.Data.Clone(),
		pending:      make(map[string]bool),
		records:      make(map[string]models.PhotoRecord),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.previews == nil {
		c.previews = photo.NewPreviewRegistry()
	}

	if !c.step.IsValid() {
		c.step = models.StepData
	}
	if !sess.IsInProgress() {
		c.step = models.StepIssued
	}
	c.slots = make(map[string]*photo.Slot, len(c.requirements))
	for _, req := range c.requirements {
		c.slots[req.ID] = photo.NewSlot(req.ID, c.previews)
	}
	for _, rec := range sess.Photos {
		if rec.HasContent() {
			c.records[rec.ID] = rec
		}
	}
	return c, nil
}

func (c *Controller) SessionID() domain.SessionID { return c.sessionID }

func (c *Controller) QuoteID() domain.QuoteID { return c.quote.ID }

// Snapshot returns the current state. It never blocks on a running operation.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(c.running.Load())
}

// begin claims the controller for one operation, failing fast when another runs.
func (c *Controller) begin() error {
	if !c.busy.TryLock() {
		return ErrBusy
	}
	c.running.Store(true)
	return nil
}

func (c *Controller) end() {
	c.running.Store(false)
	c.busy.Unlock()
}

func (c *Controller) snapshotLocked(busy bool) Snapshot {
	index := c.step.Index()
	if c.step == models.StepIssued {
		index = len(models.WizardSteps)
	}
	views := make([]SlotView, 0, len(c.requirements))
	for _, req := range c.requirements {
		view := SlotView{ID: req.ID, Label: req.Label, Description: req.Description}
		slot := c.slots[req.ID]
		if content, ok := slot.Content(); ok {
			view.Captured = true
			view.Pending = c.pending[req.ID]
			view.FileName = content.FileName
			view.Preview = slot.Preview()
		}
		if rec, ok := c.records[req.ID]; ok {
			view.Captured = true
			view.Uploaded = true
			if view.FileName == "" || !view.Pending {
				view.FileName = rec.FileName
			}
		}
		views = append(views, view)
	}
	var policy *policyModels.Policy
	if c.policy != nil {
		p := *c.policy
		policy = &p
	}
	return Snapshot{
		SessionID:   c.sessionID,
		QuoteID:     c.quote.ID,
		QuoteNumber: c.quote.Number,
		ProductName: c.quote.ProductName,
		ProductType: c.quote.ProductType,
		Step:        c.step,
		StepIndex:   index,
		Steps:       slices.Clone(models.WizardSteps),
		Form:        c.form.Clone(),
		Photos:      views,
		Policy:      policy,
		Busy:        busy,
	}
}

// Apply merges a patch into the working form. Nothing is persisted until Advance.
func (c *Controller) Apply(p models.FormPatch) (Snapshot, error) {
	if err := c.begin(); err != nil {
		return Snapshot{}, err
	}
	defer c.end()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return Snapshot{}, err
	}
	c.form = c.form.Merge(p)
	c.dirty = true
	return c.snapshotLocked(false), nil
}

func (c *Controller) SetCommon(p models.CommonPatch) (Snapshot, error) {
	return c.Apply(models.FormPatch{Common: &p})
}

func (c *Controller) SetLocation(p models.LocationPatch) (Snapshot, error) {
	return c.Apply(models.FormPatch{Location: &p})
}

func (c *Controller) SetBoat(p models.BoatPatch) (Snapshot, error) {
	return c.Apply(models.FormPatch{Boat: &p})
}

func (c *Controller) SetProperty(p models.PropertyPatch) (Snapshot, error) {
	return c.Apply(models.FormPatch{Property: &p})
}

// Capture fills a photo slot from src. A camera that is missing or denied comes back
// as an unavailable error wrapping *photo.CapabilityError; the slot keeps its
// previous content and the caller can retry with the file source.
func (c *Controller) Capture(ctx context.Context, slotID string, src photo.Source) (Snapshot, error) {
	if err := c.begin(); err != nil {
		return Snapshot{}, err
	}
	defer c.end()

	slot, err := c.photoSlot(slotID)
	if err != nil {
		return Snapshot{}, err
	}
	if err := slot.Capture(ctx, src); err != nil {
		if capErr, ok := photo.AsCapabilityError(err); ok {
			c.notify(ctx, notify.SeverityWarning, "Cámara no disponible", "Selecciona una foto desde tus archivos.")
			return Snapshot{}, dErrors.Wrap(capErr, dErrors.CodeUnavailable, "Cámara no disponible")
		}
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			c.notify(ctx, notify.SeverityError, "No se pudo usar la imagen", dErrors.MessageOf(err))
			return Snapshot{}, err
		}
		if errors.Is(err, photo.ErrPickCancelled) {
			return Snapshot{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "No se seleccionó ninguna foto")
		}
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to capture photo")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[slotID] = true
	return c.snapshotLocked(false), nil
}

// RemovePhoto clears a slot and drops its uploaded record from the working set. The
// removal is committed with the next Advance from PHOTOS.
func (c *Controller) RemovePhoto(slotID string) (Snapshot, error) {
	if err := c.begin(); err != nil {
		return Snapshot{}, err
	}
	defer c.end()

	slot, err := c.photoSlot(slotID)
	if err != nil {
		return Snapshot{}, err
	}
	slot.Remove()

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, slotID)
	delete(c.records, slotID)
	return c.snapshotLocked(false), nil
}

func (c *Controller) photoSlot(slotID string) (*photo.Slot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return nil, err
	}
	if c.step != models.StepPhotos {
		return nil, dErrors.New(dErrors.CodeInvalidState, "photos are captured on the PHOTOS step")
	}
	slot, ok := c.slots[slotID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown photo slot: "+slotID)
	}
	return slot, nil
}

// Advance validates the current step, commits it and moves forward. A failed
// validation, upload or commit leaves the step unchanged.
func (c *Controller) Advance(ctx context.Context) (Snapshot, error) {
	if err := c.begin(); err != nil {
		return Snapshot{}, err
	}
	defer c.end()

	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return Snapshot{}, err
	}
	current := c.step
	next, ok := current.Next()
	if !ok {
		// past the last step: CONFIRM moves on only through ConfirmIssue
		snap := c.snapshotLocked(false)
		c.mu.Unlock()
		return snap, nil
	}
	form := c.form.Clone()
	presence := c.presenceLocked()
	c.mu.Unlock()

	if failed, result := c.validateThrough(current, form, presence); !result.Valid {
		c.metrics.IncrementValidationFailure(failed.String())
		c.notify(ctx, notify.SeverityError, result.Title, result.Reason)
		return Snapshot{}, result.Err()
	}

	update := models.StepUpdate{CurrentStep: &next}
	patch := models.PatchFrom(form)
	update.Form = &patch

	if current == models.StepPhotos {
		if err := c.uploadPending(ctx); err != nil {
			return Snapshot{}, err
		}
		photos := c.photoList()
		update.Photos = &photos
	}

	sess, err := c.sessions.UpdateStep(ctx, c.sessionID, update)
	if err != nil {
		c.notify(ctx, notify.SeverityError, "No se pudo guardar el avance", dErrors.MessageOf(err))
		return Snapshot{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = next
	c.form = sess.Data.Clone()
	c.dirty = false
	c.logger.DebugContext(ctx, "wizard step committed",
		"session_id", c.sessionID,
		"from", current,
		"to", next,
	)
	return c.snapshotLocked(false), nil
}

// uploadPending downsizes every slot captured since its last upload and uploads them
// in requirement order. The first failure stops the step.
func (c *Controller) uploadPending(ctx context.Context) error {
	c.mu.Lock()
	slots := make([]*photo.Slot, 0, len(c.pending))
	for _, req := range c.requirements {
		if c.pending[req.ID] {
			slots = append(slots, c.slots[req.ID])
		}
	}
	c.mu.Unlock()

	prepared, err := photo.Finalize(ctx, slots, c.downsize)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "No se pudieron preparar las fotos")
	}
	for _, p := range prepared {
		rec, err := c.sessions.UploadPhoto(ctx, c.sessionID, p)
		if err != nil {
			c.notify(ctx, notify.SeverityError, "No se pudo subir la foto", dErrors.MessageOf(err))
			return err
		}
		c.mu.Lock()
		c.records[rec.ID] = *rec
		delete(c.pending, rec.ID)
		c.mu.Unlock()
	}
	return nil
}

// photoList returns the uploaded records in requirement order.
func (c *Controller) photoList() []models.PhotoRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.PhotoRecord, 0, len(c.records))
	for _, req := range c.requirements {
		if rec, ok := c.records[req.ID]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// validateThrough checks every step from DATA up to and including last, since the
// working form can be edited after the step that collected a field was committed.
// It returns the first failing step.
func (c *Controller) validateThrough(last models.Step, form models.FormData, presence map[string]bool) (models.Step, validator.Result) {
	for _, step := range models.WizardSteps {
		result := validator.Validate(validator.Input{
			Step:        step,
			ProductType: c.quote.ProductType,
			Form:        form,
			Photos:      presence,
		})
		if !result.Valid {
			return step, result
		}
		if step == last {
			break
		}
	}
	return last, validator.Result{Valid: true}
}

func (c *Controller) presenceLocked() map[string]bool {
	out := make(map[string]bool, len(c.requirements))
	for _, req := range c.requirements {
		_, uploaded := c.records[req.ID]
		out[req.ID] = uploaded || c.slots[req.ID].Filled()
	}
	return out
}

// Retreat moves back one step without persisting. On DATA it asks to leave the
// wizard for the quote.
func (c *Controller) Retreat() (Snapshot, Intent, error) {
	if err := c.begin(); err != nil {
		return Snapshot{}, None(), err
	}
	defer c.end()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editableLocked(); err != nil {
		return Snapshot{}, None(), err
	}
	prev, ok := c.step.Prev()
	if !ok {
		return c.snapshotLocked(false), LeaveToQuote(c.quote.ID), nil
	}
	c.step = prev
	return c.snapshotLocked(false), None(), nil
}

// ConfirmIssue issues the policy from CONFIRM. Failures keep the wizard on CONFIRM
// so the agent can retry.
func (c *Controller) ConfirmIssue(ctx context.Context) (Snapshot, Intent, error) {
	if err := c.begin(); err != nil {
		return Snapshot{}, None(), err
	}
	defer c.end()

	c.mu.Lock()
	if c.step != models.StepConfirm {
		c.mu.Unlock()
		return Snapshot{}, None(), dErrors.New(dErrors.CodeInvalidState, "policy can only be issued from CONFIRM")
	}
	form := c.form.Clone()
	presence := c.presenceLocked()
	var pendingForm *models.FormPatch
	if c.dirty {
		patch := models.PatchFrom(form)
		pendingForm = &patch
	}
	c.mu.Unlock()

	if failed, result := c.validateThrough(models.StepConfirm, form, presence); !result.Valid {
		c.metrics.IncrementValidationFailure(failed.String())
		c.notify(ctx, notify.SeverityError, result.Title, result.Reason)
		return Snapshot{}, None(), result.Err()
	}

	if pendingForm != nil {
		if _, err := c.sessions.UpdateStep(ctx, c.sessionID, models.StepUpdate{Form: pendingForm}); err != nil {
			c.notify(ctx, notify.SeverityError, "No se pudo emitir la póliza", dErrors.MessageOf(err))
			return Snapshot{}, None(), err
		}
	}

	p, err := c.sessions.IssuePolicy(ctx, c.sessionID)
	if err != nil {
		c.notify(ctx, notify.SeverityError, "No se pudo emitir la póliza", "")
		if !dErrors.HasCode(err, dErrors.CodeIssuanceFailed) && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			err = dErrors.Wrap(err, dErrors.CodeIssuanceFailed, "No se pudo emitir la póliza")
		}
		return Snapshot{}, None(), err
	}

	c.mu.Lock()
	c.step = models.StepIssued
	c.dirty = false
	c.policy = p
	snap := c.snapshotLocked(false)
	c.mu.Unlock()

	c.notify(ctx, notify.SeveritySuccess, "Póliza emitida", "Se enviará un correo con la confirmación y el PDF.")
	return snap, ShowPolicy(p.ID), nil
}

// HasPreview reports whether handle belongs to one of this wizard's photo slots.
func (c *Controller) HasPreview(handle string) bool {
	if handle == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, slot := range c.slots {
		if slot.Preview() == handle {
			return true
		}
	}
	return false
}

// Review summarises the committed form and photos for the REVIEW step.
func (c *Controller) Review() Review {
	c.mu.Lock()
	defer c.mu.Unlock()
	form := c.form.Clone()
	out := Review{
		InsuredName:  form.Common.InsuredName,
		InsuredRFC:   form.Common.InsuredRFC,
		InsuredEmail: form.Common.InsuredEmail,
		Location:     form.Location,
		Boat:         form.Boat,
		Property:     form.Property,
		Photos:       make([]ReviewPhoto, 0, len(c.requirements)),
	}
	for _, req := range c.requirements {
		rp := ReviewPhoto{ID: req.ID, Label: req.Label}
		if rec, ok := c.records[req.ID]; ok {
			rp.FileName = rec.FileName
			rp.Captured = true
		} else if content, ok := c.slots[req.ID].Content(); ok {
			rp.FileName = content.FileName
			rp.Captured = true
		}
		out.Photos = append(out.Photos, rp)
	}
	return out
}

// Close releases captured photos and their previews. The controller is unusable afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, slot := range c.slots {
		slot.Close()
	}
	clear(c.pending)
}

func (c *Controller) editableLocked() error {
	if c.closed {
		return dErrors.New(dErrors.CodeInvalidState, "wizard is closed")
	}
	if c.step == models.StepIssued {
		return dErrors.New(dErrors.CodeInvalidState, "issuance is already completed")
	}
	return nil
}

func (c *Controller) notify(ctx context.Context, severity notify.Severity, title, detail string) {
	c.sink.Notify(ctx, notify.Notification{
		Severity:  severity,
		Title:     title,
		Detail:    detail,
		SessionID: c.sessionID.String(),
		At:        requestcontext.Now(ctx),
	})
}
