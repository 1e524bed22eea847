package tform

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RawValue is a document value that remembers whether it was present, so
// an explicit null can be told apart from a missing key.
type RawValue struct {
	Value any
	Set   bool
}

// UnmarshalJSON records presence, including for null.
func (r *RawValue) UnmarshalJSON(data []byte) error {
	r.Set = true
	return json.Unmarshal(data, &r.Value)
}

// MarshalJSON encodes the wrapped value.
func (r RawValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value)
}

// UnmarshalYAML records presence. yaml.v3 skips this method for null nodes,
// so presence of null values is recorded by the enclosing document types.
func (r *RawValue) UnmarshalYAML(n *yaml.Node) error {
	r.Set = true
	return n.Decode(&r.Value)
}

// MarshalYAML encodes the wrapped value.
func (r RawValue) MarshalYAML() (any, error) {
	return r.Value, nil
}

// IsZero reports whether the value was absent.
func (r RawValue) IsZero() bool {
	return !r.Set
}

// Optional converts r into an Optional.
func (r RawValue) Optional() Optional[any] {
	if !r.Set {
		return Optional[any]{}
	}
	return Some(r.Value)
}

// markPresent flags the RawValues whose keys appear in mapping node n.
func markPresent(n *yaml.Node, values map[string]*RawValue) {
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if rv, ok := values[n.Content[i].Value]; ok {
			rv.Set = true
		}
	}
}

// Document is the declarative, serializable form of Definitions.
type Document struct {
	Form     string                   `json:"form,omitempty" yaml:"form,omitempty"`
	Metadata any                      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Fields   map[string]FieldDocument `json:"fields" yaml:"fields" validate:"required,min=1,dive"`
}

// FieldDocument declares one field in a Document.
type FieldDocument struct {
	InitialValue         RawValue           `json:"initialValue" yaml:"initialValue" validate:"present"`
	Required             bool               `json:"required,omitempty" yaml:"required,omitempty"`
	RequiredWhen         *Condition         `json:"requiredWhen,omitempty" yaml:"requiredWhen,omitempty"`
	RequiredErrorMsg     string             `json:"requiredErrorMsg,omitempty" yaml:"requiredErrorMsg,omitempty"`
	SilenceRequiredError bool               `json:"silenceRequiredError,omitempty" yaml:"silenceRequiredError,omitempty"`
	Untouchable          bool               `json:"untouchable,omitempty" yaml:"untouchable,omitempty"`
	Metadata             any                `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Rules                []RuleDocument     `json:"rules,omitempty" yaml:"rules,omitempty" validate:"dive"`
	ItemKey              string             `json:"itemKey,omitempty" yaml:"itemKey,omitempty"`
	ResetIfNotRequired   RawValue           `json:"resetIfNotRequired,omitzero" yaml:"resetIfNotRequired,omitempty"`
	ResetFieldsOnChange  map[string]any     `json:"resetFieldsOnChange,omitempty" yaml:"resetFieldsOnChange,omitempty"`
	ResetItselfOnChange  *SelfResetDocument `json:"resetItselfOnChange,omitempty" yaml:"resetItselfOnChange,omitempty"`
}

// UnmarshalYAML decodes the field and records which optional values were
// present, null included.
func (f *FieldDocument) UnmarshalYAML(n *yaml.Node) error {
	type plain FieldDocument
	if err := n.Decode((*plain)(f)); err != nil {
		return err
	}
	markPresent(n, map[string]*RawValue{
		"initialValue":       &f.InitialValue,
		"resetIfNotRequired": &f.ResetIfNotRequired,
	})
	return nil
}

// RuleDocument is a go-playground/validator tag with the message shown when
// it fails.
type RuleDocument struct {
	Tag     string `json:"tag" yaml:"tag" validate:"required,ruletag"`
	Message string `json:"message" yaml:"message" validate:"required"`
}

// SelfResetDocument is the declarative form of SelfReset.
type SelfResetDocument struct {
	Value       any      `json:"value" yaml:"value"`
	WatchFields []string `json:"watchFields" yaml:"watchFields" validate:"required,min=1"`
}

// Condition derives a required flag from another field's value. All set
// clauses must hold.
type Condition struct {
	Field     string   `json:"field" yaml:"field" validate:"required"`
	Equals    RawValue `json:"equals,omitzero" yaml:"equals,omitempty"`
	NotEquals RawValue `json:"notEquals,omitzero" yaml:"notEquals,omitempty"`
	NotEmpty  bool     `json:"notEmpty,omitempty" yaml:"notEmpty,omitempty"`
}

// UnmarshalYAML decodes the condition and records which comparisons were
// present, null included.
func (c *Condition) UnmarshalYAML(n *yaml.Node) error {
	type plain Condition
	if err := n.Decode((*plain)(c)); err != nil {
		return err
	}
	markPresent(n, map[string]*RawValue{
		"equals":    &c.Equals,
		"notEquals": &c.NotEquals,
	})
	return nil
}

// Holds evaluates the condition against fields.
func (c Condition) Holds(fields Fields) bool {
	v := fields.Value(c.Field)
	if c.Equals.Set && !DeepEqual(v, c.Equals.Value) {
		return false
	}
	if c.NotEquals.Set && DeepEqual(v, c.NotEquals.Value) {
		return false
	}
	if c.NotEmpty && IsEmptyValue(v) {
		return false
	}
	return true
}

// documentValidator is the shared validator for documents. RawValue is
// validated by presence and "present" is an alias of required.
var documentValidator = newDocumentValidator()

func newDocumentValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if rv, ok := field.Interface().(RawValue); ok && rv.Set {
			return true
		}
		return nil
	}, RawValue{})
	v.RegisterAlias("present", "required")
	if err := v.RegisterValidation("ruletag", func(fl validator.FieldLevel) bool {
		return ValidRuleTag(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// DecodeDocument decodes and validates a document.
func DecodeDocument(data []byte, codec Codec) (*Document, error) {
	var doc Document
	if err := codec.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document structure and its cross-field references.
func (d *Document) Validate() error {
	if err := documentValidator.Struct(d); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	defs := d.Definitions()
	if err := defs.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	for _, id := range defs.IDs() {
		if cond := d.Fields[id].RequiredWhen; cond != nil {
			if _, ok := d.Fields[cond.Field]; !ok {
				return fmt.Errorf("%w: field %q depends on %q: %w", ErrInvalidDocument, id, cond.Field, ErrFieldNotFound)
			}
		}
	}
	return nil
}

// Definitions converts the document into field definitions.
func (d *Document) Definitions() Definitions {
	defs := make(Definitions, len(d.Fields))
	for id, fd := range d.Fields {
		defs[id] = fd.Definition()
	}
	return defs
}

// Definition converts a field document into a FieldDefinition.
func (fd FieldDocument) Definition() FieldDefinition {
	def := FieldDefinition{
		InitialValue:         fd.InitialValue.Value,
		Required:             fd.Required,
		RequiredErrorMsg:     fd.RequiredErrorMsg,
		SilenceRequiredError: fd.SilenceRequiredError,
		Untouchable:          fd.Untouchable,
		Metadata:             fd.Metadata,
		ResetIfNotRequired:   fd.ResetIfNotRequired.Optional(),
		ResetFieldsOnChange:  fd.ResetFieldsOnChange,
	}

	if cond := fd.RequiredWhen; cond != nil {
		c := *cond
		def.RequiredFn = func(ctx RequiredContext) bool {
			return c.Holds(ctx.Fields)
		}
	}

	for _, rule := range fd.Rules {
		def.Checks = append(def.Checks, RuleCheck(rule.Tag, rule.Message))
	}

	switch fd.ItemKey {
	case "":
	case ".":
		def.ItemIdentity = ItemSelf
	default:
		def.ItemIdentity = KeyField(fd.ItemKey)
	}

	if fd.ResetItselfOnChange != nil {
		def.ResetItselfOnChange = &SelfReset{
			Value:       fd.ResetItselfOnChange.Value,
			WatchFields: fd.ResetItselfOnChange.WatchFields,
		}
	}

	return def
}
