// Package fault defines the error kinds surfaced by the brain and sensor
// services. The kind is the stable machine-readable part; transports map it
// to status codes.
package fault

import (
	"errors"
	"fmt"
)

type Kind string

const (
	NoConfiguration     Kind = "NO_CONFIGURATION"
	ConfigurationExists Kind = "BRAIN_EXISTS"
	NotEnoughData       Kind = "NOT_ENOUGH_TRAINING_DATA"
	NotTrained          Kind = "NOT_TRAINED"
	NotActual           Kind = "NOT_ACTUAL"
	BadRequest          Kind = "BAD_REQUEST"
	NoSensor            Kind = "NO_SENSOR"
	SensorExists        Kind = "SENSOR_EXISTS"
	NoAPIKey            Kind = "NO_API_KEY"
	APIKeyExists        Kind = "API_KEY_EXISTS"
	Unauthorized        Kind = "UNAUTHORIZED"
	Forbidden           Kind = "FORBIDDEN"
	Security            Kind = "SECURITY_EXCEPTION"
	Unknown             Kind = "UNKNOWN"
)

var (
	ErrNoConfiguration     = &Error{Kind: NoConfiguration}
	ErrConfigurationExists = &Error{Kind: ConfigurationExists}
	ErrNotEnoughData       = &Error{Kind: NotEnoughData}
	ErrNotTrained          = &Error{Kind: NotTrained}
	ErrNotActual           = &Error{Kind: NotActual}
	ErrBadRequest          = &Error{Kind: BadRequest}
	ErrNoSensor            = &Error{Kind: NoSensor}
	ErrSensorExists        = &Error{Kind: SensorExists}
	ErrNoAPIKey            = &Error{Kind: NoAPIKey}
	ErrAPIKeyExists        = &Error{Kind: APIKeyExists}
	ErrUnauthorized        = &Error{Kind: Unauthorized}
	ErrForbidden           = &Error{Kind: Forbidden}
	ErrSecurity            = &Error{Kind: Security}
	ErrUnknown             = &Error{Kind: Unknown}
)

var defaultDescriptions = map[Kind]string{
	NoConfiguration:     "No brain configuration found.",
	ConfigurationExists: "A brain with this name already exists.",
	NotEnoughData:       "Brain needs at least 10 data points to be trained.",
	NotTrained:          "No trained brain with this name found.",
	NotActual:           "Brain was not trained with the actual versions of service and libraries.",
	BadRequest:          "The request is malformed.",
	NoSensor:            "No sensor with this name found.",
	SensorExists:        "A sensor with this name already exists.",
	NoAPIKey:            "No API key with this id found.",
	APIKeyExists:        "An API key with this description already exists.",
	Unauthorized:        "Could not validate credentials.",
	Forbidden:           "Not enough privileges for this request.",
	Security:            "A security violation occurred while handling your request.",
	Unknown:             "An unknown exception occurred while handling your request.",
}

// Error carries a kind, the subject it concerns (brain or sensor name) and a
// human description. Err keeps the underlying cause for logging.
type Error struct {
	Kind        Kind
	Subject     string
	Description string
	Err         error
}

func New(kind Kind, subject, description string) *Error {
	return &Error{Kind: kind, Subject: subject, Description: description}
}

func Newf(kind Kind, subject, format string, args ...any) *Error {
	return New(kind, subject, fmt.Sprintf(format, args...))
}

func Wrap(kind Kind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Subject != "" {
		msg += " (" + e.Subject + ")"
	}
	d := e.Text()
	if d != "" {
		msg += ": " + d
	}
	if e.Err != nil && e.Err.Error() != d {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Text is the description shown to callers.
func (e *Error) Text() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Err != nil && e.Kind != Unknown {
		return e.Err.Error()
	}
	return defaultDescriptions[e.Kind]
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind, so errors.Is(err, ErrNotActual)
// works regardless of subject and description.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Describe returns the caller facing description for any error. Errors that
// are not a *Error are reported opaquely.
func Describe(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Text()
	}
	return defaultDescriptions[Unknown]
}
