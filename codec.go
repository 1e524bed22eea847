package tform

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Codec defines the serialization contract for definition documents and
// state dumps. Implement this interface to use alternative formats like TOML.
type Codec interface {
	// Unmarshal deserializes bytes into a value.
	Unmarshal(data []byte, v any) error

	// Marshal serializes a value.
	Marshal(v any) ([]byte, error)

	// ContentType returns the MIME type for observability and debugging.
	ContentType() string
}

// JSONCodec implements Codec using encoding/json.
type JSONCodec struct{}

// Unmarshal deserializes JSON bytes into v.
func (JSONCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("expected JSON: %w", err)
	}
	return nil
}

// Marshal serializes v as indented JSON.
func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// ContentType returns the JSON MIME type.
func (JSONCodec) ContentType() string {
	return "application/json"
}

// YAMLCodec implements Codec using gopkg.in/yaml.v3.
type YAMLCodec struct{}

// Unmarshal deserializes YAML bytes into v.
func (YAMLCodec) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

// Marshal serializes v as YAML.
func (YAMLCodec) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// ContentType returns the YAML MIME type.
func (YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// AutoCodec detects JSON by its leading character and falls back to YAML.
// It marshals as YAML.
type AutoCodec struct{}

// Unmarshal deserializes JSON or YAML bytes into v.
func (AutoCodec) Unmarshal(data []byte, v any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return JSONCodec{}.Unmarshal(data, v)
	}
	return YAMLCodec{}.Unmarshal(data, v)
}

// Marshal serializes v as YAML.
func (AutoCodec) Marshal(v any) ([]byte, error) {
	return YAMLCodec{}.Marshal(v)
}

// ContentType returns the YAML MIME type, the superset format.
func (AutoCodec) ContentType() string {
	return YAMLCodec{}.ContentType()
}

// CodecFor returns the codec for a format name or file extension such as
// "json", ".yml" or "auto".
func CodecFor(format string) (Codec, error) {
	switch format {
	case "json", ".json":
		return JSONCodec{}, nil
	case "yaml", "yml", ".yaml", ".yml":
		return YAMLCodec{}, nil
	case "", "auto":
		return AutoCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

var (
	_ Codec = JSONCodec{}
	_ Codec = YAMLCodec{}
	_ Codec = AutoCodec{}
)
