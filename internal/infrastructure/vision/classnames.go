package vision

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"polybot/internal/domain/entity"
)

// datasetFile: часть файла описания датасета YOLO (например, coco128.yaml).
type datasetFile struct {
	Names yaml.Node `yaml:"names"`
}

// LoadClassNames читает таблицу классов из файла датасета.
func LoadClassNames(path string) (entity.ClassNames, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.ClassNames{}, fmt.Errorf("open class names: %w", err)
	}
	defer f.Close()

	return ParseClassNames(f)
}

// ParseClassNames разбирает поле names: списком ([person, bicycle]) или
// словарём ({0: person, 1: bicycle}).
func ParseClassNames(r io.Reader) (entity.ClassNames, error) {
	var ds datasetFile
	if err := yaml.NewDecoder(r).Decode(&ds); err != nil {
		return entity.ClassNames{}, fmt.Errorf("decode class names: %w", err)
	}

	switch ds.Names.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := ds.Names.Decode(&list); err != nil {
			return entity.ClassNames{}, fmt.Errorf("decode class names list: %w", err)
		}
		return entity.ClassNamesFromList(list), nil
	case yaml.MappingNode:
		var m map[int]string
		if err := ds.Names.Decode(&m); err != nil {
			return entity.ClassNames{}, fmt.Errorf("decode class names map: %w", err)
		}
		return entity.NewClassNames(m), nil
	default:
		return entity.ClassNames{}, fmt.Errorf("class names: field \"names\" is missing or not a list/map")
	}
}
