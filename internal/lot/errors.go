package lot

import (
	"errors"
	"fmt"
)

// Sentinel values matched with errors.Is by callers that only care about
// the category of a failure.
var (
	ErrConfig           = errors.New("lot: invalid prize configuration")
	ErrAlreadyGenerated = errors.New("lot: batch already has coupons")
	ErrAuditInput       = errors.New("lot: invalid audit input")
)

// ConfigError reports a prize table that cannot produce a lot for the
// requested batch.  Nothing may be persisted when generation fails with it.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "lot: invalid prize configuration: " + e.Reason }

func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// AlreadyGeneratedError is returned when a batch already owns coupons.
type AlreadyGeneratedError struct {
	BatchID  uint64
	Existing int
}

func (e *AlreadyGeneratedError) Error() string {
	return fmt.Sprintf("lot: batch %d already has %d coupons", e.BatchID, e.Existing)
}

func (e *AlreadyGeneratedError) Unwrap() error { return ErrAlreadyGenerated }

// AuditInputError is returned by a single auditor when the coupon set it
// was handed is empty or malformed.  Other audits are unaffected.
type AuditInputError struct {
	Audit  ValidationType
	Reason string
}

func (e *AuditInputError) Error() string {
	return fmt.Sprintf("lot: %s: %s", e.Audit, e.Reason)
}

func (e *AuditInputError) Unwrap() error { return ErrAuditInput }
