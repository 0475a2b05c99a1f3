package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidInput is returned for malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a referenced lesson or order does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOutOfStock is returned when a cart line could not be reserved.
	ErrOutOfStock = errors.New("out of stock")
	// ErrStoreUnavailable is returned when the store or its transaction failed.
	// No partial state survives, so the whole call may be retried.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError lists the offending fields of a rejected request.
type ValidationError struct {
	Fields map[string]string // field → reason
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid input: %s", strings.Join(names, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidField(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// OutOfStockError names the first cart line that could not be reserved.
type OutOfStockError struct {
	LessonID string
	Subject  string
}

func (e *OutOfStockError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("out of stock: %s (lesson %s)", e.Subject, e.LessonID)
	}
	return fmt.Sprintf("out of stock: lesson %s", e.LessonID)
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

// normalizeID accepts ids in any letter case; stored ids are lowercase.
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// newValidator returns a validator reporting fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts validator output into a ValidationError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[fieldPath(e)] = reason(e)
	}
	return &ValidationError{Fields: fields}
}

// fieldPath strips the root struct name from the namespace: "orderRequest.cart[0].id" → "cart[0].id".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func reason(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", e.Param())
		}
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "uuid":
		return "must be a valid lesson id"
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	}
	return fmt.Sprintf("failed on the '%s' tag", e.Tag())
}
