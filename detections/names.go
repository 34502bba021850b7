package detections

import (
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/yaml.v3"
)

// ClassNames maps a model class index to its label.
type ClassNames map[int]string

func (n ClassNames) ClassName(id int) (string, bool) {
	name, ok := n[id]
	return name, ok
}

// ParseNamesMetadata parses the "names" entry ultralytics writes into the
// custom metadata of exported models, e.g. "{0: 'with_mask', 1: 'without_mask'}".
// The value is a Python dict literal, which is also a YAML flow mapping.
func ParseNamesMetadata(value string) (ClassNames, error) {
	var names map[int]string
	if err := yaml.Unmarshal([]byte(value), &names); err != nil {
		return nil, fmt.Errorf("parse names metadata: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("names metadata is empty")
	}
	return ClassNames(names), nil
}

// LoadNamesFile reads class names from a dataset YAML file whose "names" key
// is either a list or an index to name mapping.
func LoadNamesFile(path string) (ClassNames, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read names file: %w", err)
	}

	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse names file %s: %w", path, err)
	}

	names := make(ClassNames)
	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := doc.Names.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode names list: %w", err)
		}
		for i, name := range list {
			names[i] = name
		}
	case yaml.MappingNode:
		var m map[int]string
		if err := doc.Names.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode names mapping: %w", err)
		}
		for i, name := range m {
			names[i] = name
		}
	default:
		return nil, fmt.Errorf("names file %s has no names list", path)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("names file %s has no names", path)
	}
	return names, nil
}

func readMetadataNames(modelPath string) (ClassNames, error) {
	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	defer metadata.Destroy()

	value, ok, err := metadata.LookupCustomMetadataMap("names")
	if err != nil {
		return nil, fmt.Errorf("lookup names metadata: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("model has no names metadata")
	}
	return ParseNamesMetadata(value)
}
