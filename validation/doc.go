// Package validation checks client configuration and endpoint descriptors.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection.
//
// # Struct Tag Validation
//
//	type Endpoint struct {
//	    Method string `json:"method" validate:"required"`
//	}
//	err := validation.Validate(ep)
//
// # Programmatic Validation
//
//	err := validation.New().Required("name", name).Validate()
package validation
