package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// OutputFormat is the rendering used for single document and merged output.
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
	FormatText     OutputFormat = "text"
)

// Valid reports whether f is a supported output format.
func (f OutputFormat) Valid() bool {
	return f == FormatMarkdown || f == FormatJSON || f == FormatText
}

// TableFormat is the rendering used by the tables job.
type TableFormat string

const (
	TableMarkdown TableFormat = "markdown"
	TableCSV      TableFormat = "csv"
	TableXLSX     TableFormat = "xlsx"
)

// Valid reports whether f is a supported table format.
func (f TableFormat) Valid() bool {
	return f == TableMarkdown || f == TableCSV || f == TableXLSX
}

// Options are the per-request processing switches shared by the CLI and the API.
type Options struct {
	Format          OutputFormat `json:"format,omitempty"`
	Normalize       bool         `json:"normalize"`
	IncludeMetadata bool         `json:"include_metadata"`
	Structured      bool         `json:"structured"`
	Chunk           bool         `json:"chunk"`
	ChunkSize       int          `json:"chunk_size,omitempty"`
	AnalyzeImages   bool         `json:"analyze_images"`
	Index           bool         `json:"index"`
	TableFormat     TableFormat  `json:"table_format,omitempty"`
}

// DefaultOptions mirrors the defaults of the extract command.
func DefaultOptions() Options {
	return Options{
		Format:          FormatMarkdown,
		Normalize:       true,
		IncludeMetadata: true,
		ChunkSize:       1000,
		TableFormat:     TableMarkdown,
	}
}

// WithDefaults fills zero values with defaults.
func (o Options) WithDefaults() Options {
	if o.Format == "" {
		o.Format = FormatMarkdown
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = 1000
	}
	if o.TableFormat == "" {
		o.TableFormat = TableMarkdown
	}
	return o
}

// Value implements the driver.Valuer interface for database serialization.
func (o Options) Value() (driver.Value, error) {
	return marshalColumn(o)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (o *Options) Scan(value interface{}) error {
	return unmarshalColumn(value, o)
}

// Payload names the filesystem input of a job.
type Payload struct {
	Path             string `json:"path,omitempty"`
	Dir              string `json:"dir,omitempty"`
	ProcessNumber    string `json:"process_number,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	OutputDir        string `json:"output_dir,omitempty"`
}

// Value implements the driver.Valuer interface for database serialization.
func (p Payload) Value() (driver.Value, error) {
	return marshalColumn(p)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (p *Payload) Scan(value interface{}) error {
	return unmarshalColumn(value, p)
}

func marshalColumn(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalColumn(value interface{}, dst interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JSON column")
		}
		bytes = []byte(str)
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dst)
}
