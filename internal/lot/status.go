package lot

// BatchStatus is the production state of a batch.
type BatchStatus string

const (
	StatusPending    BatchStatus = "pending"
	StatusInProgress BatchStatus = "in_progress"
	StatusCompleted  BatchStatus = "completed"
	StatusQCPassed   BatchStatus = "qc_passed"
	StatusQCFailed   BatchStatus = "qc_failed"
)

// transitions lists the forward moves allowed for each status.  qc_failed
// may be re-evaluated by a new QC run; qc_passed is terminal.
var transitions = map[BatchStatus][]BatchStatus{
	StatusPending:    {StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  {StatusQCPassed, StatusQCFailed},
	StatusQCFailed:   {StatusQCPassed, StatusQCFailed},
}

// Valid reports whether s is one of the known statuses.
func (s BatchStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusQCPassed, StatusQCFailed:
		return true
	}
	return false
}

// CanTransition reports whether a batch may move from one status to another.
func CanTransition(from, to BatchStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanGenerate reports whether coupons may be generated for a batch in status s.
func CanGenerate(s BatchStatus) bool {
	return s == StatusPending || s == StatusInProgress
}

// CanAudit reports whether a QC run may be recorded for a batch in status s.
func CanAudit(s BatchStatus) bool {
	return s == StatusCompleted || s == StatusQCFailed
}

// ReleaseStatus maps the combined audit outcome to the batch status.
func ReleaseStatus(passed bool) BatchStatus {
	if passed {
		return StatusQCPassed
	}
	return StatusQCFailed
}
