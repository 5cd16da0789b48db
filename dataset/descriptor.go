package dataset

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Descriptor is the content of a data.yaml file.
type Descriptor struct {
	Path  string `json:"path,omitempty"  yaml:"path,omitempty"`
	Train string `json:"train"           yaml:"train"`
	Val   string `json:"val"             yaml:"val"`
	Test  string `json:"test,omitempty"  yaml:"test,omitempty"`
	NC    int    `json:"nc"              yaml:"nc"`
	Names Names  `json:"names"           yaml:"names"`
}

// Names accepts both the list form and the index-keyed map form of class names.
type Names []string

func (n *Names) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*n = list

		return nil
	case yaml.MappingNode:
		var indexed map[int]string
		if err := node.Decode(&indexed); err != nil {
			return err
		}
		keys := make([]int, 0, len(indexed))
		for k := range indexed {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		names := make([]string, 0, len(keys))
		for _, k := range keys {
			names = append(names, indexed[k])
		}
		*n = names

		return nil
	default:
		return fmt.Errorf("unsupported names node at line %d", node.Line)
	}
}

func ReadDescriptor(loc Location) (Descriptor, error) {
	data, err := os.ReadFile(loc.Descriptor())
	if err != nil {
		if os.IsNotExist(err) {
			return Descriptor{}, ErrMissingDescriptor
		}

		return Descriptor{}, fmt.Errorf("error reading dataset descriptor: %w", err)
	}

	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("error parsing dataset descriptor: %w", err)
	}

	if d.NC == 0 {
		d.NC = len(d.Names)
	}

	return d, nil
}
