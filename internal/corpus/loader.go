package corpus

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/spf13/afero"

	"github.com/tagwise/tagwise/internal/errors"
	"github.com/tagwise/tagwise/internal/logger"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 16 * 1024 * 1024

// Loader reads corpus files from a filesystem.
type Loader struct {
	fs     afero.Fs
	idKey  string
	logger logger.Logger
}

// NewLoader returns a loader reading from fs, taking instance IDs from
// the idKey field of each record.
func NewLoader(fs afero.Fs, idKey string) *Loader {
	if idKey == "" {
		idKey = "id"
	}
	return &Loader{fs: fs, idKey: idKey, logger: GetLogger()}
}

// Load reads every path into one corpus, in order. The format follows the
// extension: .jsonl, .json (array of objects), .csv or .tsv.
func (l *Loader) Load(paths ...string) (*Corpus, error) {
	c := New()
	for _, path := range paths {
		before := c.Len()
		if err := l.loadFile(c, path); err != nil {
			return nil, err
		}
		l.logger.Info("loaded corpus file",
			logger.String("path", path),
			logger.Int("instances", c.Len()-before))
	}
	return c, nil
}

func (l *Loader) loadFile(c *Corpus, path string) error {
	f, err := l.fs.Open(path)
	if err != nil {
		return errors.FileError(err, path, 0)
	}
	defer func() { _ = f.Close() }()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jsonl":
		err = l.readJSONL(c, f)
	case ".json":
		err = l.readJSONArray(c, f)
	case ".csv":
		err = l.readDelimited(c, f, ',')
	case ".tsv":
		err = l.readDelimited(c, f, '\t')
	default:
		err = fmt.Errorf("unsupported corpus file extension %q", ext)
	}
	if err != nil {
		return errors.New(err).
			Component("corpus").
			Category(errors.CategoryFileParsing).
			FileContext(path, 0).
			Build()
	}
	return nil
}

func (l *Loader) readJSONL(c *Corpus, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		obj, err := jason.NewObjectFromBytes(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := l.addObject(c, obj); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return scanner.Err()
}

func (l *Loader) readJSONArray(c *Corpus, r io.Reader) error {
	v, err := jason.NewValueFromReader(r)
	if err != nil {
		return err
	}
	objs, err := v.ObjectArray()
	if err != nil {
		return fmt.Errorf("expected an array of objects: %w", err)
	}
	for i, obj := range objs {
		if err := l.addObject(c, obj); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (l *Loader) addObject(c *Corpus, obj *jason.Object) error {
	id, err := objectID(obj, l.idKey)
	if err != nil {
		return err
	}

	fields, ok := obj.Interface().(map[string]any)
	if !ok {
		return fmt.Errorf("record %s is not an object", id)
	}
	return c.Add(id, Record(fields))
}

// objectID reads the ID field, accepting strings and numbers.
func objectID(obj *jason.Object, key string) (string, error) {
	if s, err := obj.GetString(key); err == nil {
		return s, nil
	}
	if n, err := obj.GetNumber(key); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("record has no string or numeric %q field", key)
}

func (l *Loader) readDelimited(c *Corpus, r io.Reader, sep rune) error {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	idCol := -1
	for i, h := range header {
		if h == l.idKey {
			idCol = i
		}
	}
	if idCol < 0 {
		return fmt.Errorf("header has no %q column", l.idKey)
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		rec := make(Record, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		if err := c.Add(row[idCol], rec); err != nil {
			return err
		}
	}
}
