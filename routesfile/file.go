package routesfile

import (
	"fmt"
	"os"

	"github.com/zalando/fastlane/routing"
	"sigs.k8s.io/yaml"
)

// Document is the format of the route files.
type Document struct {
	Routes []*routing.Def `json:"routes"`
}

// Parse parses the content of a route file. Unknown fields are rejected.
func Parse(data []byte) ([]*routing.Def, error) {
	var doc Document
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse routes: %w", err)
	}

	return doc.Routes, nil
}

// Client is a data client serving the routes loaded once from a file.
type Client struct {
	routes []*routing.Def
}

// Open loads the route definitions from a file, and returns a data client
// serving them.
func Open(path string) (*Client, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	routes, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Client{routes: routes}, nil
}

// LoadAll returns the route definitions found in the file.
func (c *Client) LoadAll() ([]*routing.Def, error) {
	return c.routes, nil
}

// LoadUpdate returns no changes.
func (*Client) LoadUpdate() ([]*routing.Def, []string, error) {
	return nil, nil, nil
}
