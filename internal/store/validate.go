package store

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/timekiosk/timekiosk/internal/model"
)

//go:embed schemas.cue
var schemasCUE string

// schemaDefs maps each collection to its CUE definition.
var schemaDefs = map[string]string{
	model.CollectionEmployees:   "#Employee",
	model.CollectionTimeRecords: "#TimeRecord",
	model.CollectionLocations:   "#Location",
	model.CollectionDepartments: "#Department",
	model.CollectionSettings:    "#Settings",
}

// SchemaStage validates document bodies against the embedded collection
// schemas. It passes bodies through unchanged: validation is a gate, not
// a transform, so Decode re-checks what Encode checked.
type SchemaStage struct {
	mu      sync.Mutex
	schemas map[string]cue.Value
}

// NewSchemaStage compiles the embedded schemas. Compilation failure is a
// build defect, not a runtime condition, so it is returned as a plain
// error for Open to fail on.
func NewSchemaStage() (*SchemaStage, error) {
	ctx := cuecontext.New()
	root := ctx.CompileString(schemasCUE, cue.Filename("schemas.cue"))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schemas.cue: %w", err)
	}

	schemas := make(map[string]cue.Value, len(schemaDefs))
	for collection, def := range schemaDefs {
		v := root.LookupPath(cue.ParsePath(def))
		if !v.Exists() {
			return nil, fmt.Errorf("schemas.cue: missing definition %s for %s", def, collection)
		}
		schemas[collection] = v
	}
	return &SchemaStage{schemas: schemas}, nil
}

// Encode validates the body against the collection schema.
func (s *SchemaStage) Encode(collection string, body []byte) ([]byte, error) {
	if err := s.validate(collection, body); err != nil {
		return nil, err
	}
	return body, nil
}

// Decode re-validates on the way out. A failure here means on-disk
// corruption or a schema change that orphaned old documents.
func (s *SchemaStage) Decode(collection string, body []byte) ([]byte, error) {
	if err := s.validate(collection, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *SchemaStage) validate(collection string, body []byte) error {
	schema, ok := s.schemas[collection]
	if !ok {
		return newUnknownCollectionError(collection)
	}

	// cue.Value unification is not documented as concurrency-safe, and
	// the stage is shared between the writer and readers.
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cuejson.Validate(body, schema); err != nil {
		return newValidationError(collection, "", err.Error())
	}
	return nil
}
