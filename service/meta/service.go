package meta

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service loads flow-type definitions (YAML documents) from any URL scheme
// supported by afs. Relative locations are resolved against baseURL.
type Service struct {
	fs      afs.Service
	baseURL string
	options []storage.Option
}

// Load downloads the document at the given location, expands ${env.KEY}
// expressions and decodes the YAML into target.
func (s *Service) Load(ctx context.Context, location string, target interface{}) error {
	if filepath.Ext(location) == "" {
		location += ".yaml"
	}
	URL := location
	if s.baseURL != "" && url.Scheme(location, "") == "" && !filepath.IsAbs(location) {
		URL = url.Join(s.baseURL, location)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL, s.options...)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", URL, err)
	}
	expanded := expandEnvExpr(string(data))
	if err = yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", URL, err)
	}
	return nil
}

// New creates a meta service.
func New(fs afs.Service, baseURL string, options ...storage.Option) *Service {
	return &Service{fs: fs, baseURL: baseURL, options: options}
}
