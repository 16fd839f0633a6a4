package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.schema.json
var schemaJSON string

var documentSchema = mustSchema(schemaJSON)

// document is the on-disk form of a catalog file.
type document struct {
	Topics []NewTopic `json:"topics" yaml:"topics"`
}

// Spreadsheet columns, in order: Topic | Position | Problem | URL | URL2.
const (
	colTopic = iota
	colPosition
	colProblem
	colURL
	colURL2
)

// LoadFile reads catalog topics from a .yaml, .yml, .json or .xlsx file.
func LoadFile(path string) ([]NewTopic, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".json":
		return loadJSON(path)
	case ".xlsx":
		return loadSpreadsheet(path)
	default:
		return nil, fmt.Errorf("unsupported catalog file %q", path)
	}
}

// LoadDir walks rootDir and loads every catalog file it finds, in lexical
// path order.
func LoadDir(rootDir string) ([]NewTopic, error) {
	var topics []NewTopic
	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json", ".xlsx":
		default:
			return nil
		}

		loaded, err := LoadFile(path)
		if err != nil {
			return err
		}
		slog.Debug("catalog file loaded", "path", path, "topics", len(loaded))
		topics = append(topics, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading catalog dir: %w", err)
	}
	return topics, nil
}

// Load reads a catalog from path, which may be a file or a directory.
func Load(path string) ([]NewTopic, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat catalog: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

func loadYAML(path string) ([]NewTopic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := checkSchema(path, gojsonschema.NewGoLoader(raw)); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc.Topics, nil
}

func loadJSON(path string) ([]NewTopic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := checkSchema(path, gojsonschema.NewBytesLoader(data)); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc.Topics, nil
}

func loadSpreadsheet(path string) ([]NewTopic, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows from %s: %w", path, err)
	}

	var topics []NewTopic
	index := make(map[string]int)

	for i, row := range rows {
		rowNum := i + 1
		name := cell(row, colTopic)
		if i == 0 && strings.EqualFold(name, "topic") {
			continue // header
		}
		problem := cell(row, colProblem)
		if name == "" && problem == "" {
			continue
		}
		if name == "" {
			return nil, fmt.Errorf("%s row %d: topic is empty", path, rowNum)
		}

		key := NormalizeName(name)
		ti, ok := index[key]
		if !ok {
			position := len(topics)
			if p := cell(row, colPosition); p != "" {
				position, err = strconv.Atoi(p)
				if err != nil {
					return nil, fmt.Errorf("%s row %d: invalid position %q", path, rowNum, p)
				}
			}
			topics = append(topics, NewTopic{Name: key, Position: position, Questions: []NewQuestion{}})
			ti = len(topics) - 1
			index[key] = ti
		}

		if problem == "" {
			continue
		}
		q := NewQuestion{Problem: problem, URLs: []string{}}
		for _, c := range []int{colURL, colURL2} {
			if u := cell(row, c); u != "" {
				q.URLs = append(q.URLs, u)
			}
		}
		topics[ti].Questions = append(topics[ti].Questions, q)
	}

	return topics, nil
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func checkSchema(path string, doc gojsonschema.JSONLoader) error {
	result, err := documentSchema.Validate(doc)
	if err != nil {
		return fmt.Errorf("validate %s: %w", path, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s does not match catalog schema: %s", path, strings.Join(msgs, "; "))
}

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("catalog schema: %v", err))
	}
	return s
}
