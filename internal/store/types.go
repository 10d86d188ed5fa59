package store

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/clargs/internal/kernelargs"
)

// Report is a persisted extraction result.
//
// The kernel source itself is not stored, only its path (if it came from a
// file) and its SHA-256, so a later run can tell whether the source changed.
type Report struct {
	// ID is a random UUID assigned by NewReport
	ID string `json:"id"`

	// SourcePath is the file the source was read from ("-" for stdin, "" for
	// HTTP requests)
	SourcePath string `json:"sourcePath,omitempty"`

	// SourceHash is the hex SHA-256 of the source text
	SourceHash string `json:"sourceHash"`

	// Kernel is the extracted kernel name and arguments
	Kernel kernelargs.Kernel `json:"kernel"`

	// Timestamp records when the extraction ran
	Timestamp time.Time `json:"timestamp"`
}

// ReportInfo is report metadata without the argument list.
type ReportInfo struct {
	ID         string    `json:"id"`
	SourcePath string    `json:"sourcePath,omitempty"`
	SourceHash string    `json:"sourceHash"`
	KernelName string    `json:"kernelName"`
	ArgCount   int       `json:"argCount"`
	Timestamp  time.Time `json:"timestamp"`
}

// HashSource returns the hex SHA-256 of src.
func HashSource(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// NewReport creates a report for a successful extraction.
func NewReport(sourcePath, src string, kernel *kernelargs.Kernel) *Report {
	return &Report{
		ID:         uuid.New().String(),
		SourcePath: sourcePath,
		SourceHash: HashSource(src),
		Kernel:     *kernel,
		Timestamp:  time.Now(),
	}
}

// ToInfo converts a full Report to ReportInfo.
func (r *Report) ToInfo() ReportInfo {
	return ReportInfo{
		ID:         r.ID,
		SourcePath: r.SourcePath,
		SourceHash: r.SourceHash,
		KernelName: r.Kernel.Name,
		ArgCount:   len(r.Kernel.Args),
		Timestamp:  r.Timestamp,
	}
}

// Validate checks that the report has the fields needed to store and list it.
func (r *Report) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		return &ValidationError{Field: "ID", Reason: "must be a UUID"}
	}
	if len(r.SourceHash) != sha256.Size*2 {
		return &ValidationError{Field: "SourceHash", Reason: "must be a hex SHA-256"}
	}
	if _, err := hex.DecodeString(r.SourceHash); err != nil {
		return &ValidationError{Field: "SourceHash", Reason: "must be a hex SHA-256"}
	}
	if r.Kernel.Name == "" {
		return &ValidationError{Field: "Kernel.Name", Reason: "cannot be empty"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	for _, arg := range r.Kernel.Args {
		if arg.IsPointer == arg.IsScalar {
			return &ValidationError{Field: "Kernel.Args", Reason: "argument " + arg.Name + " is both pointer and scalar"}
		}
		if arg.VectorWidth < 1 {
			return &ValidationError{Field: "Kernel.Args", Reason: "argument " + arg.Name + " has invalid vector width"}
		}
	}
	return nil
}

// Matches reports whether src is the source this report was built from.
func (r *Report) Matches(src string) bool {
	return r.SourceHash == HashSource(src)
}

// ValidationError represents a report validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
