package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("value already exists")
	ErrDuplicateColony   = errors.New("colony already registered in region")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrAlreadyConcluded  = errors.New("operative already concluded")
	ErrForbidden         = errors.New("permission denied")
	ErrProtectedUser     = errors.New("user cannot be deleted")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrTokenRevoked      = errors.New("session closed")
	ErrNoRecords         = errors.New("no records in range")
)

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// validator accumulates field errors.
type validator struct {
	fields map[string]string
}

func (v *validator) add(field, msg string) {
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, ok := v.fields[field]; !ok {
		v.fields[field] = msg
	}
}

func (v *validator) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, "required")
	}
}

func (v *validator) err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: v.fields}
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
