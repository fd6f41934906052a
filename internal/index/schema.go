package index

import (
	"github.com/cockroachdb/errors"

	"GoJoin/internal/analysis"
)

// Field type constants.
const (
	FieldTypeText    = "text"
	FieldTypeKeyword = "keyword"
	FieldTypeNumeric = "numeric"
)

// Schema limits.
const (
	MaxFieldsPerSchema = 256
	MaxFieldNameLength = 255
)

// Reserved field names that cannot be used in user schemas.
var reservedFieldNames = map[string]bool{
	"_id":     true,
	"_score":  true,
	"_source": true,
}

var (
	ErrSchemaFieldLimit       = errors.New("schema exceeds maximum field count")
	ErrSchemaReservedField    = errors.New("field name is reserved")
	ErrSchemaDuplicateField   = errors.New("duplicate field name")
	ErrSchemaInvalidType      = errors.New("invalid field type")
	ErrSchemaInvalidAnalyzer  = errors.New("invalid analyzer")
	ErrSchemaFieldNameTooLong = errors.New("field name exceeds maximum length")
	ErrSchemaMissingAnalyzer  = errors.New("text field requires an analyzer")
	ErrSchemaMultiValued      = errors.New("only keyword fields may be multi-valued")
)

// Schema describes the fields documents in an index may carry.
//
// Keyword fields are indexed verbatim and get binary and sorted-set doc
// values, which is what term joins read their keys from. Numeric fields are
// indexed by their decimal form and get numeric doc values for sorting and
// scoring. Text fields are analyzed and only have postings.
type Schema struct {
	Fields          []FieldDef `json:"fields" yaml:"fields"`
	DefaultAnalyzer string     `json:"default_analyzer" yaml:"defaultAnalyzer"`
}

// FieldDef defines a single field in the schema.
type FieldDef struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Analyzer    string `json:"analyzer,omitempty" yaml:"analyzer,omitempty"`
	Stored      bool   `json:"stored" yaml:"stored"`
	MultiValued bool   `json:"multi_valued,omitempty" yaml:"multiValued,omitempty"`
}

// Field returns the definition of the named field.
func (s *Schema) Field(name string) (FieldDef, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// Validate checks the schema for correctness.
func (s *Schema) Validate() error {
	if len(s.Fields) > MaxFieldsPerSchema {
		return errors.Wrapf(ErrSchemaFieldLimit, "%d fields (max %d)", len(s.Fields), MaxFieldsPerSchema)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if reservedFieldNames[f.Name] {
			return errors.Wrapf(ErrSchemaReservedField, "%q", f.Name)
		}
		if seen[f.Name] {
			return errors.Wrapf(ErrSchemaDuplicateField, "%q", f.Name)
		}
		seen[f.Name] = true

		if len(f.Name) > MaxFieldNameLength {
			return errors.Wrapf(ErrSchemaFieldNameTooLong, "%q (%d bytes, max %d)", f.Name, len(f.Name), MaxFieldNameLength)
		}
		switch f.Type {
		case FieldTypeText:
			if f.Analyzer == "" && s.DefaultAnalyzer == "" {
				return errors.Wrapf(ErrSchemaMissingAnalyzer, "field %q", f.Name)
			}
		case FieldTypeKeyword, FieldTypeNumeric:
		default:
			return errors.Wrapf(ErrSchemaInvalidType, "field %q: %q", f.Name, f.Type)
		}
		if f.Analyzer != "" {
			if err := validateAnalyzer(f.Analyzer); err != nil {
				return errors.Wrapf(err, "field %q", f.Name)
			}
		}
		if f.MultiValued && f.Type != FieldTypeKeyword {
			return errors.Wrapf(ErrSchemaMultiValued, "field %q", f.Name)
		}
	}

	if s.DefaultAnalyzer != "" {
		if err := validateAnalyzer(s.DefaultAnalyzer); err != nil {
			return errors.Wrap(err, "default_analyzer")
		}
	}
	return nil
}

func (s *Schema) analyzerFor(f FieldDef) string {
	if f.Analyzer != "" {
		return f.Analyzer
	}
	if s.DefaultAnalyzer != "" {
		return s.DefaultAnalyzer
	}
	return analysis.Standard
}

func validateAnalyzer(a string) error {
	switch a {
	case analysis.Standard, analysis.Whitespace, analysis.Keyword:
		return nil
	default:
		return errors.Wrapf(ErrSchemaInvalidAnalyzer, "%q", a)
	}
}
