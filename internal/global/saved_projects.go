package global

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const savedProjectsFileName = "saved-projects.json"

// SavedProject records which history snapshot a project maps to so a
// restarted process can offer it for resumption.
type SavedProject struct {
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	HistoryID string    `json:"history_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SavedProjectsStore struct {
	dir string
}

func NewSavedProjectsStore(dir string) *SavedProjectsStore {
	return &SavedProjectsStore{dir: dir}
}

func (s *SavedProjectsStore) List() ([]SavedProject, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, savedProjectsFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []SavedProject{}, nil
		}
		return nil, err
	}
	var list []SavedProject
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *SavedProjectsStore) Upsert(p SavedProject) error {
	list, err := s.List()
	if err != nil {
		return err
	}
	p.Name = strings.TrimSpace(p.Name)
	p.UpdatedAt = time.Now().UTC()
	updated := false
	for i := range list {
		if list[i].ProjectID == p.ProjectID {
			if p.Name != "" {
				list[i].Name = p.Name
			}
			list[i].HistoryID = p.HistoryID
			list[i].UpdatedAt = p.UpdatedAt
			updated = true
			break
		}
	}
	if !updated {
		list = append(list, p)
	}
	return writeJSONAtomically(filepath.Join(s.dir, savedProjectsFileName), list)
}

func (s *SavedProjectsStore) Remove(projectID string) error {
	list, err := s.List()
	if err != nil {
		return err
	}
	out := list[:0]
	for _, p := range list {
		if p.ProjectID != projectID {
			out = append(out, p)
		}
	}
	return writeJSONAtomically(filepath.Join(s.dir, savedProjectsFileName), out)
}
