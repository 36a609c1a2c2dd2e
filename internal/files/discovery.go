package files

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"banvicdash/internal/config"
)

// FileInfo represents information about one configured source file
type FileInfo struct {
	Table   string    `json:"table"`
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Exists  bool      `json:"exists"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time,omitempty"`
}

// Discovery inspects the source files named by a data config without
// reading their content.
type Discovery struct {
	dir   string
	files []config.DataFile
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(cfg config.DataConfig) *Discovery {
	return &Discovery{dir: cfg.Dir, files: cfg.Files()}
}

// Sources stats every configured source file in load order.
func (d *Discovery) Sources() []FileInfo {
	out := make([]FileInfo, 0, len(d.files))
	for _, f := range d.files {
		fi := FileInfo{Table: f.Table, Path: f.Path, Name: filepath.Base(f.Path)}
		if info, err := os.Stat(f.Path); err == nil && !info.IsDir() {
			fi.Exists = true
			fi.Size = info.Size()
			fi.ModTime = info.ModTime()
		}
		out = append(out, fi)
	}
	return out
}

// Missing returns the tables whose source file is absent.
func (d *Discovery) Missing() []string {
	var missing []string
	for _, f := range d.Sources() {
		if !f.Exists {
			missing = append(missing, f.Table)
		}
	}
	return missing
}

// FindDataFiles lists the CSV and XLSX files in the data directory, sorted
// by name. Files that are not configured as sources are included.
func (d *Discovery) FindDataFiles() ([]FileInfo, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}

	tables := make(map[string]string, len(d.files))
	for _, f := range d.files {
		tables[filepath.Clean(f.Path)] = f.Table
	}

	var out []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(d.dir, name)
		out = append(out, FileInfo{
			Table:   tables[filepath.Clean(path)],
			Path:    path,
			Name:    name,
			Exists:  true,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetLatestFile returns the most recently modified existing file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	var latest FileInfo
	found := false
	for _, file := range files {
		if !file.Exists {
			continue
		}
		if !found || file.ModTime.After(latest.ModTime) {
			latest = file
			found = true
		}
	}
	return latest, found
}
