package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type printer struct {
	format string
}

func newPrinter(format string) (printer, error) {
	switch format {
	case formatJSON, formatYAML:
		return printer{format: format}, nil
	default:
		return printer{}, fmt.Errorf("unsupported output format %q, expected %q or %q", format, formatJSON, formatYAML)
	}
}

// print writes v to w as indented JSON or as YAML.
func (p printer) print(w io.Writer, v any) error {
	if p.format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("could not encode output: %v", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("could not encode output: %v", err)
	}
	return nil
}
