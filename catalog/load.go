package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"io"
	"os"
)

//go:embed default.yaml
var defaultSchema []byte

type schemaFile struct {
	Tables []Table `yaml:"tables"`
}

// Load decodes a YAML schema of the form
//
//	tables:
//	  - name: Cliente
//	    columns: [idCliente, Nome]
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f schemaFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty schema", ErrInvalidSchema)
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidSchema, err)
	}
	if len(f.Tables) == 0 {
		return nil, fmt.Errorf("%w: no table declared", ErrInvalidSchema)
	}
	return New(f.Tables)
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Default returns the built-in schema. The embedded file is part of the
// binary, failing to load it is a build defect.
func Default() *Catalog {
	c, err := Load(bytes.NewReader(defaultSchema))
	if err != nil {
		panic(fmt.Sprintf("built-in schema is broken: %s", err))
	}
	return c
}
