package templating

import (
	"fmt"
	"os"

	"github.com/CTAG07/Bakery/pkg/bakery"
	"gopkg.in/yaml.v2"
)

// LoadVars reads a YAML file of top-level bindings. JSON files work too, as
// JSON is valid YAML. Numbers become strings and sequences of mappings
// become lists for block iteration; sequences of scalars are rejected.
func LoadVars(path string) (bakery.Bindings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err = yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse vars file %s: %w", path, err)
	}

	b, err := bakery.NormalizeBindings(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid vars file %s: %w", path, err)
	}
	return b, nil
}
