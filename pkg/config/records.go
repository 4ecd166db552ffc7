package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/rulekit/rulekit/pkg/data"
)

// Record is one read-only configuration record: a top-level field of the
// loaded CUE value. It implements data.Structured with its fields in
// declaration order.
type Record struct {
	Name   string
	Source string

	props []data.Property
}

// Properties implements data.Structured.
func (r *Record) Properties() []data.Property {
	return slices.Clone(r.props)
}

// Container returns a new container holding the record's fields.
func (r *Record) Container(opts ...data.Option) (*data.Container, error) {
	c := data.New(opts...)
	for _, p := range r.props {
		if err := c.Set(data.ParseKey(p.Name), p.Value); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.Name, err)
		}
	}
	return c, nil
}

// RecordSet is the set of records loaded from CUE sources.
type RecordSet struct {
	Records     []*Record
	SourceFiles []string
}

// Get returns a record by name.
func (rs *RecordSet) Get(name string) (*Record, bool) {
	for _, r := range rs.Records {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Names returns the record names in load order.
func (rs *RecordSet) Names() []string {
	names := make([]string, len(rs.Records))
	for i, r := range rs.Records {
		names[i] = r.Name
	}
	return names
}

// ValidationError describes one problem found in a CUE source.
type ValidationError struct {
	File    string
	Line    int
	Column  int
	Message string
}

func (e ValidationError) String() string {
	if e.File == "" {
		return e.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
}

// LoadError reports every problem found while loading records.
type LoadError struct {
	Errors []ValidationError
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.String()
	}
	return "invalid config records: " + strings.Join(msgs, "; ")
}

// RecordLoader compiles CUE sources into records.
type RecordLoader struct {
	ctx *cue.Context
}

// NewRecordLoader creates a new record loader.
func NewRecordLoader() *RecordLoader {
	return &RecordLoader{ctx: cuecontext.New()}
}

// Load reads .cue files and directories of .cue files. All files are
// unified into one value, so a record may be spread over several files.
// Values must be concrete.
func (l *RecordLoader) Load(sources ...string) (*RecordSet, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}

	var files []string
	for _, source := range sources {
		info, err := os.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("failed to stat source %s: %w", source, err)
		}
		if !info.IsDir() {
			files = append(files, source)
			continue
		}
		found, err := findCUEFiles(source)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	units := make([]sourceUnit, len(files))
	for i, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		units[i] = sourceUnit{file: file, content: content}
	}
	return l.build(units)
}

// LoadString compiles inline CUE source.
func (l *RecordLoader) LoadString(src string) (*RecordSet, error) {
	return l.build([]sourceUnit{{file: "inline", content: []byte(src)}})
}

type sourceUnit struct {
	file    string
	content []byte
}

func (l *RecordLoader) build(units []sourceUnit) (*RecordSet, error) {
	var merged cue.Value
	origin := make(map[string]string)
	var problems []ValidationError
	for _, u := range units {
		val := l.ctx.CompileBytes(u.content, cue.Filename(u.file))
		if err := val.Err(); err != nil {
			problems = append(problems, convertCUEErrors(err)...)
			continue
		}
		for name := range fieldNames(val) {
			if _, ok := origin[name]; !ok {
				origin[name] = u.file
			}
		}
		if merged.Exists() {
			merged = merged.Unify(val)
		} else {
			merged = val
		}
	}
	if len(problems) > 0 {
		return nil, &LoadError{Errors: problems}
	}

	set := &RecordSet{}
	for _, u := range units {
		set.SourceFiles = append(set.SourceFiles, u.file)
	}
	if !merged.Exists() {
		return set, nil
	}
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Errors: convertCUEErrors(err)}
	}

	it, err := merged.Fields()
	if err != nil {
		return nil, fmt.Errorf("config records must be a struct: %w", err)
	}
	for it.Next() {
		name := it.Selector().Unquoted()
		v := it.Value()
		if v.Kind() != cue.StructKind {
			return nil, fmt.Errorf("record %s: expected a struct, got %s", name, v.Kind())
		}
		props, err := structProperties(v)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", name, err)
		}
		set.Records = append(set.Records, &Record{Name: name, Source: origin[name], props: props})
	}
	return set, nil
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".cue") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	slices.Sort(files)
	return files, nil
}

func fieldNames(v cue.Value) map[string]struct{} {
	names := make(map[string]struct{})
	it, err := v.Fields()
	if err != nil {
		return names
	}
	for it.Next() {
		names[it.Selector().Unquoted()] = struct{}{}
	}
	return names
}

// properties keeps nested CUE structs ordered when they are wrapped into a
// container.
type properties []data.Property

func (p properties) Properties() []data.Property {
	return p
}

func structProperties(v cue.Value) (properties, error) {
	it, err := v.Fields()
	if err != nil {
		return nil, err
	}
	props := properties{}
	for it.Next() {
		val, err := plainValue(it.Value())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", it.Selector().Unquoted(), err)
		}
		if val == nil {
			continue
		}
		props = append(props, data.Property{Name: it.Selector().Unquoted(), Value: val})
	}
	return props, nil
}

// plainValue converts a concrete CUE value into a value data.Wrap accepts.
// Nulls become nil.
func plainValue(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		return v.Int64()
	case cue.FloatKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.BytesKind:
		return v.Bytes()
	case cue.StructKind:
		return structProperties(v)
	case cue.ListKind:
		it, err := v.List()
		if err != nil {
			return nil, err
		}
		list := []any{}
		for it.Next() {
			item, err := plainValue(it.Value())
			if err != nil {
				return nil, err
			}
			if item != nil {
				list = append(list, item)
			}
		}
		return list, nil
	}
	return nil, fmt.Errorf("unsupported value of kind %s", v.Kind())
}

func convertCUEErrors(err error) []ValidationError {
	var out []ValidationError
	for _, e := range errors.Errors(err) {
		ve := ValidationError{Message: errors.Details(e, nil)}
		if pos := errors.Positions(e); len(pos) > 0 {
			ve.File, ve.Line, ve.Column = pos[0].Filename(), pos[0].Line(), pos[0].Column()
		}
		out = append(out, ve)
	}
	return out
}
