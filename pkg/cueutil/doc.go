// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE schema validation.
//
// Schemas are embedded CUE sources with one root definition. Documents are
// either CUE source (ParseAndDecode, Schema.ValidateSource) or values already
// decoded from another format (Schema.ValidateValue), so JSON, YAML and TOML
// documents are checked against the same rules as CUE ones.
//
//	//go:embed manifest_schema.cue
//	var schemaBytes []byte
//
//	schema := cueutil.MustCompile(schemaBytes, "#Manifest")
//	if err := schema.ValidateValue(doc, "package.json"); err != nil {
//	    return err // includes the CUE path of each violation
//	}
package cueutil
