package tracing

import (
	"encoding/csv"
	"fmt"
	"os"
	"reflect"

	"github.com/fatih/structs"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// A CSVRecorder is a DataRecorder that writes each table into its own CSV
// file.
type CSVRecorder struct {
	prefix string

	files  map[string]*os.File
	csvs   map[string]*csv.Writer
	tables map[string]*table

	bufferSize int
	entryCount int
}

// NewCSVRecorder creates a CSVRecorder. Files are named prefix_table.csv;
// an empty prefix generates a unique name. The recorder flushes at exit.
func NewCSVRecorder(prefix string) *CSVRecorder {
	if prefix == "" {
		prefix = "psramsim_trace_" + xid.New().String()
	}

	r := &CSVRecorder{
		prefix:     prefix,
		files:      make(map[string]*os.File),
		csvs:       make(map[string]*csv.Writer),
		tables:     make(map[string]*table),
		bufferSize: 1000,
	}

	atexit.Register(func() { r.Close() })

	return r
}

// CreateTable creates the CSV file for a table and writes the header row.
func (r *CSVRecorder) CreateTable(tableName string, sampleEntry any) {
	mustHaveFlatFields(sampleEntry)

	filename := r.prefix + "_" + tableName + ".csv"
	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	file, err := os.Create(filename)
	if err != nil {
		panic(err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(structs.Names(sampleEntry)); err != nil {
		panic(err)
	}

	r.files[tableName] = file
	r.csvs[tableName] = w
	r.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
}

// InsertData buffers one entry for the given table.
func (r *CSVRecorder) InsertData(tableName string, entry any) {
	t, exists := r.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Sprintf("entry type does not match table %s", tableName))
	}

	t.entries = append(t.entries, entry)

	r.entryCount++
	if r.entryCount >= r.bufferSize {
		r.Flush()
	}
}

// ListTables returns the names of all the created tables.
func (r *CSVRecorder) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	return names
}

// Flush writes all the buffered entries to their files.
func (r *CSVRecorder) Flush() {
	for tableName, t := range r.tables {
		w := r.csvs[tableName]

		for _, entry := range t.entries {
			v := reflect.ValueOf(entry)

			record := make([]string, 0, v.NumField())
			for i := 0; i < v.NumField(); i++ {
				record = append(record,
					fmt.Sprintf("%v", v.Field(i).Interface()))
			}

			if err := w.Write(record); err != nil {
				panic(err)
			}
		}

		t.entries = nil
		w.Flush()
	}

	r.entryCount = 0
}

// Close flushes and closes all the files.
func (r *CSVRecorder) Close() {
	r.Flush()

	for _, file := range r.files {
		if err := file.Close(); err != nil {
			panic(err)
		}
	}
}
