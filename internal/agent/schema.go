package agent

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileSchema compiles a tool's parameter schema under a synthetic URL.
func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	url := "mem://tools/" + name + ".json"

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("tool %s: adding schema: %w", name, err)
	}
	schema, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("tool %s: compiling schema: %w", name, err)
	}
	return schema, nil
}
