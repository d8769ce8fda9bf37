package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/orchestra/model"
	"github.com/viant/orchestra/service/dao"
	"github.com/viant/orchestra/service/dao/criteria"
)

// Service implements a file-system flow repository. Each flow is stored as a
// JSON document under basePath; any URL scheme supported by afs works
// (file, mem, s3, gs, ...).
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ dao.Service[string, model.Flow] = (*Service)(nil)

// Save persists a flow document.
func (s *Service) Save(ctx context.Context, flow *model.Flow) error {
	if flow == nil {
		return dao.ErrNilEntity
	}
	if flow.ID == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow %v: %w", flow.ID, err)
	}
	location := s.flowPath(flow.ID)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save flow to %s: %w", location, err)
	}
	return nil
}

// Load retrieves a flow document.
func (s *Service) Load(ctx context.Context, id string) (*model.Flow, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	location := s.flowPath(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check flow %v: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow %v: %w", id, err)
	}
	var flow model.Flow
	if err = json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow %v: %w", id, err)
	}
	return &flow, nil
}

// Delete removes a flow document.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	location := s.flowPath(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check flow %v: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err = s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("failed to delete flow %v: %w", id, err)
	}
	return nil
}

// List returns all stored flows matching the filter parameters. Unreadable
// documents are skipped so that one corrupted file does not hide the rest.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	var flows []*model.Flow
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			continue
		}
		var flow model.Flow
		if err := json.Unmarshal(data, &flow); err != nil {
			continue
		}
		if !criteria.MatchFlow(&flow, parameters) {
			continue
		}
		flows = append(flows, &flow)
	}
	return flows, nil
}

func (s *Service) flowPath(id string) string {
	return path.Join(s.basePath, fmt.Sprintf("%s.json", id))
}

// New creates a file-system flow repository rooted at basePath.
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	fs := afs.New()
	ctx := context.Background()
	if exists, _ := fs.Exists(ctx, basePath); !exists {
		if err := fs.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	return &Service{
		basePath: url.Normalize(basePath, file.Scheme),
		fs:       fs,
	}, nil
}
