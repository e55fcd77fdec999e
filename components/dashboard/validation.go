package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ReportValidator rejects reports that cannot be rendered.
type ReportValidator interface {
	Validate(report Report) error
}

// JSONSchemaValidator checks reports against the catalog and its JSON schema.
type JSONSchemaValidator struct {
	catalog  Catalog
	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewJSONSchemaValidator builds a validator backed by jsonschema v5.
func NewJSONSchemaValidator(catalog Catalog) *JSONSchemaValidator {
	return &JSONSchemaValidator{catalog: catalog}
}

// Validate returns a *ValidationError when report is not acceptable.
func (v *JSONSchemaValidator) Validate(report Report) error {
	if !v.catalog.HasDataSource(report.DataSource) {
		return &ValidationError{Field: "dataSource", Value: string(report.DataSource), Reason: "not in catalog"}
	}
	if !v.catalog.HasVisualization(report.Visualization) {
		return &ValidationError{Field: "visualization", Value: string(report.Visualization), Reason: "not in catalog"}
	}
	schema, err := v.schema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("dashboard: marshal report: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("dashboard: normalize report: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return &ValidationError{Reason: "schema mismatch", Err: err}
	}
	return nil
}

func (v *JSONSchemaValidator) schema() (*jsonschema.Schema, error) {
	v.once.Do(func() {
		data, err := json.Marshal(v.catalog.ReportSchema())
		if err != nil {
			v.err = fmt.Errorf("dashboard: marshal report schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		const name = "report.json"
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			v.err = fmt.Errorf("dashboard: load report schema: %w", err)
			return
		}
		v.compiled, v.err = compiler.Compile(name)
		if v.err != nil {
			v.err = fmt.Errorf("dashboard: compile report schema: %w", v.err)
		}
	})
	return v.compiled, v.err
}
