package scaffold

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

func TestRun_CreatesProject(t *testing.T) {
	fs := afero.NewMemMapFs()

	created, err := Run(fs, "site")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// marque.yaml, monetize.json and five collections
	if len(created) != 7 {
		t.Errorf("created %d files, want 7: %v", len(created), created)
	}

	for _, name := range []string{"cars", "columns", "guides", "heritage", "news", "monetize"} {
		data, err := afero.ReadFile(fs, filepath.Join("site", "content", name+".json"))
		if err != nil {
			t.Errorf("missing %s.json: %v", name, err)
			continue
		}
		if !bytes.Equal(bytes.TrimSpace(data), []byte("[]")) {
			t.Errorf("%s.json = %q, want empty array", name, data)
		}
	}

	data, err := afero.ReadFile(fs, filepath.Join("site", "marque.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("generated marque.yaml does not parse: %v", err)
	}
	if parsed["baseURL"] != "https://marque-journal.com" {
		t.Errorf("baseURL = %v", parsed["baseURL"])
	}
}

func TestRun_KeepsExistingFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	cars := filepath.Join("site", "content", "cars.json")
	if err := fs.MkdirAll(filepath.Dir(cars), 0755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, cars, []byte(`[{"slug":"kept"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	created, err := Run(fs, "site")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, p := range created {
		if p == cars {
			t.Error("existing cars.json reported as created")
		}
	}
	data, _ := afero.ReadFile(fs, cars)
	if string(data) != `[{"slug":"kept"}]` {
		t.Errorf("cars.json overwritten: %s", data)
	}
}
