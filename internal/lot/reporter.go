package lot

import "time"

// ValidationStatus is the result recorded for one audit.
type ValidationStatus string

const (
	ValidationPass    ValidationStatus = "pass"
	ValidationFail    ValidationStatus = "fail"
	ValidationPending ValidationStatus = "pending"
)

// QCValidation is one audit record for a batch.
type QCValidation struct {
	BatchID     uint64
	Type        ValidationType
	Status      ValidationStatus
	Details     Detail
	ValidatedBy string
	ValidatedAt time.Time
}

// Report is what a QC run produces: one validation per audit type and the
// status the batch moves to.
type Report struct {
	Validations []QCValidation
	Passed      bool
	Status      BatchStatus
}

// Reporter turns audit outcomes into validation records.
type Reporter struct {
	now func() time.Time
}

// NewReporter returns a Reporter stamping records with the current UTC time.
func NewReporter() *Reporter {
	return &Reporter{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source, mostly for tests.
func (r *Reporter) WithClock(now func() time.Time) *Reporter {
	return &Reporter{now: now}
}

// Report builds the three validation records for batch.  An outcome that
// failed to run is recorded as fail with the reason in its details.  The
// batch passes only when all three audits pass.
func (r *Reporter) Report(batch Batch, validatedBy string, distribution, box, consecutive Outcome) Report {
	at := r.now()
	outcomes := []Outcome{
		withType(distribution, DistributionCheck),
		withType(box, BoxComposition),
		withType(consecutive, ConsecutiveCheck),
	}
	rep := Report{Validations: make([]QCValidation, 0, len(outcomes)), Passed: true}
	for _, o := range outcomes {
		status := ValidationPass
		if !o.Passed() {
			status = ValidationFail
			rep.Passed = false
		}
		rep.Validations = append(rep.Validations, QCValidation{
			BatchID:     batch.ID,
			Type:        o.Type,
			Status:      status,
			Details:     o.Detail,
			ValidatedBy: validatedBy,
			ValidatedAt: at,
		})
	}
	rep.Status = ReleaseStatus(rep.Passed)
	return rep
}

// withType fills in an outcome the caller never produced, e.g. after a
// panic in an audit goroutine, so every report has all three records.
func withType(o Outcome, t ValidationType) Outcome {
	if o.Type == "" {
		o.Type = t
	}
	if o.Detail == nil {
		if o.Err == nil {
			o.Err = &AuditInputError{Audit: t, Reason: "audit did not run"}
		}
		o.Detail = errorDetail(t, o.Err)
	}
	return o
}
