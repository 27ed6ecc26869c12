package manifest

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteYAML writes doc as YAML with two-space indentation.
func WriteYAML(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding manifest %q: %w", doc.Name, err)
	}
	return enc.Close()
}

// WriteYAMLFile writes the resolved configuration of m to path, so a run can
// be reproduced from exactly what was generated.
func WriteYAMLFile(path string, m *Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteYAML(f, m.Resolved); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
