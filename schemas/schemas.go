// Package schemas embeds the JSON Schemas for arena configuration files.
package schemas

import _ "embed"

// ArenaSchemaJSON is the schema for .arena.yaml.
//
//go:embed arena.schema.json
var ArenaSchemaJSON string
