package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Enrollment business-rule violations. The messages are part of the API
// contract consumed by the SPA, hence the fixed Spanish wording.
var (
	ErrDuplicateCourseEnrollment  = New("DUPLICATE_COURSE_ENROLLMENT", http.StatusBadRequest, "El estudiante ya está matriculado en este curso")
	ErrDuplicatePackageEnrollment = New("DUPLICATE_PACKAGE_ENROLLMENT", http.StatusBadRequest, "El estudiante ya está matriculado en este paquete")
	ErrPackageCoversCourse        = New("PACKAGE_COVERS_COURSE", http.StatusBadRequest, "Ya existe una matrícula de paquete que cubre este curso")
	ErrCourseInsidePackage        = New("COURSE_INSIDE_PACKAGE", http.StatusBadRequest, "El estudiante ya está matriculado en cursos que pertenecen a este paquete")
	ErrCourseOfferingNotFound     = New("COURSE_OFFERING_NOT_FOUND", http.StatusBadRequest, "Course offering no encontrado")
	ErrPackageOfferingNotFound    = New("PACKAGE_OFFERING_NOT_FOUND", http.StatusBadRequest, "Package offering no encontrado")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// IsBusinessRule reports whether the error is one of the enrollment
// workflow's known business-rule violations.
func IsBusinessRule(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case ErrDuplicateCourseEnrollment.Code,
		ErrDuplicatePackageEnrollment.Code,
		ErrPackageCoversCourse.Code,
		ErrCourseInsidePackage.Code,
		ErrCourseOfferingNotFound.Code,
		ErrPackageOfferingNotFound.Code:
		return true
	default:
		return false
	}
}
