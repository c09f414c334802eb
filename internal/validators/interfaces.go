// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks inbound sync API payloads before they reach the
// merge service.
//
// A Validator accepts a value and an optional list of field names that
// restricts which rules run. With no fields every rule for the value's type
// is applied:
//
//	v := validators.NewSyncValidator()
//	err := v.Validate(ctx, pushRequest)                         // all rules
//	err = v.Validate(ctx, record, validators.FieldRecordID)     // id only
//
// Errors are sentinels from errors.go, wrapped with the offending index for
// list fields.
package validators

import "context"

// Validator defines a generic validation interface for arbitrary input values.
type Validator interface {

	// Validate validates the provided input and optionally
	// restricts validation to specific named fields.
	Validate(context.Context, any, ...string) error
}
