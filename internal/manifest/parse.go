package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Parse parses package.json content.
//
// The document must be strict UTF-8 JSON: comments, trailing commas and
// invalid byte sequences are errors. A document without a "dependencies"
// object (or whose root is not an object at all) yields a manifest with no
// dependencies. A name declared twice keeps its first position and takes the
// last value.
func Parse(data []byte) (*Manifest, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("invalid JSON: not valid UTF-8")
	}
	if !gjson.ValidBytes(data) {
		return nil, syntaxError(data)
	}

	m := &Manifest{Dependencies: []Dependency{}}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return m, nil
	}

	m.Name = root.Get("name").String()
	m.Version = root.Get("version").String()
	m.Private = root.Get("private").Bool()

	deps := root.Get("dependencies")
	if !deps.IsObject() {
		return m, nil
	}

	index := make(map[string]int)
	deps.ForEach(func(key, value gjson.Result) bool {
		name, spec := key.String(), value.String()
		if i, ok := index[name]; ok {
			m.Dependencies[i].Spec = spec
			m.Dependencies[i].Exact = isExact(spec)
			return true
		}
		index[name] = len(m.Dependencies)
		m.Dependencies = append(m.Dependencies, Dependency{
			Name:  name,
			Spec:  spec,
			Exact: isExact(spec),
		})
		return true
	})

	return m, nil
}

// syntaxError re-parses invalid input with encoding/json to obtain an error
// that carries the byte offset of the problem.
func syntaxError(data []byte) error {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return errors.New("invalid JSON")
}

// Bootstrap returns the minimal manifest written when the playground is
// first created: {"name":<name>,"version":"1.0.0","private":true}.
func Bootstrap(name string) ([]byte, error) {
	if name == "" {
		name = DefaultName
	}

	fields := []struct {
		path  string
		value any
	}{
		{"name", name},
		{"version", DefaultVersion},
		{"private", true},
	}

	doc := []byte(`{}`)
	for _, f := range fields {
		var err error
		doc, err = sjson.SetBytes(doc, f.path, f.value)
		if err != nil {
			return nil, fmt.Errorf("building manifest field %s: %w", f.path, err)
		}
	}
	return doc, nil
}
