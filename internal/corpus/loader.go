package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Format identifies a corpus file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Load reads, decodes and validates the corpus at path.
func Load(path string) (*Corpus, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	var c *Corpus
	switch format {
	case FormatXLSX:
		c, err = loadXLSX(path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read corpus: %w", err)
		}
		c, err = Parse(data, format)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes a JSON or YAML corpus document. It does not validate.
func Parse(data []byte, format Format) (*Corpus, error) {
	var c Corpus
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse corpus: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to parse corpus: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported corpus format %q", format)
	}
	return &c, nil
}

// DetectFormat picks the decoder from the file extension, and sniffs the
// content when the extension is not recognised.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to detect corpus format: %w", err)
	}
	switch {
	case mt.Is("application/json"):
		return FormatJSON, nil
	case mt.Is(xlsxMIME):
		return FormatXLSX, nil
	case mt.Is("text/plain"):
		// YAML is a superset of JSON, so plain text goes through the YAML decoder.
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported corpus content type %s", mt.String())
}

// loadXLSX reads the first sheet of a workbook with a "tag | pattern | response"
// header. Each row adds its non-empty pattern and/or response to the tag;
// intents keep the order in which tags first appear.
func loadXLSX(path string) (*Corpus, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("corpus workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus sheet: %w", err)
	}
	if len(rows) == 0 {
		return &Corpus{}, nil
	}

	cols := map[string]int{"tag": -1, "pattern": -1, "response": -1}
	for i, h := range rows[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := cols[key]; ok {
			cols[key] = i
		}
	}
	if cols["tag"] < 0 {
		return nil, fmt.Errorf("corpus sheet %q: missing tag column", sheets[0])
	}

	cell := func(row []string, col int) string {
		if col < 0 || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	var c Corpus
	index := make(map[string]int)
	for _, row := range rows[1:] {
		tag := cell(row, cols["tag"])
		if tag == "" {
			continue
		}
		i, ok := index[tag]
		if !ok {
			i = len(c.Intents)
			index[tag] = i
			c.Intents = append(c.Intents, Intent{Tag: tag})
		}
		if p := cell(row, cols["pattern"]); p != "" {
			c.Intents[i].Patterns = append(c.Intents[i].Patterns, p)
		}
		if r := cell(row, cols["response"]); r != "" {
			c.Intents[i].Responses = append(c.Intents[i].Responses, r)
		}
	}
	return &c, nil
}
