// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

/*
Package validation wraps go-playground/validator v10 for configuration and
request bodies.

A single validator instance is shared process-wide; validator caches struct
metadata per type, so building one per call would discard that cache.

Field errors are translated into short messages using the field's koanf or
json tag name, so a configuration error reads as the key an operator typed:

	engine.tick_interval_ms must be greater than 0

# Custom tags

	severity   one of info, warning, critical
	channel    one of webhook, email, slack

# Usage

	type RuleUpdate struct {
	    Enabled *bool `json:"enabled" validate:"required"`
	}

	if err := validation.Struct(&req); err != nil {
	    var verr *validation.Error
	    if errors.As(err, &verr) {
	        // verr.Fields() lists each failing field
	    }
	}
*/
package validation
