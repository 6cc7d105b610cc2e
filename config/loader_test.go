package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/terrane/terrane/config"
)

func TestLoader_Root(t *testing.T) {
	tests := []struct {
		name    string
		dir     string
		want    string
		wantErr bool
	}{
		{"Exact", "testdata/project", mustAbs(t, "testdata/project"), false},
		{"Subdir", "testdata/project/sub", mustAbs(t, "testdata/project"), false},
		{"NoProject", os.TempDir(), "", false},
		{"NotFound", "nonexisting", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &config.Loader{}
			got, err := l.Root(tt.dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("Loader.Root() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("Loader.Root() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoader_Load(t *testing.T) {
	l := &config.Loader{}
	body, diags := l.Load("testdata/project")
	if diags.HasErrors() {
		t.Fatalf("Load() diagnostics: %v", diags)
	}

	type block struct {
		Type   string
		Labels []string
	}
	var got []block
	for _, b := range body.ChildBlocks {
		got = append(got, block{Type: b.Type, Labels: b.Labels})
	}

	want := []block{
		{Type: "resource", Labels: []string{"aws_s3_bucket", "assets"}},
		{Type: "project", Labels: []string{"example"}},
		{Type: "resource", Labels: []string{"aws_s3_bucket_object", "index"}},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Load() blocks (-got +want)\n%s", diff)
	}
}

func TestLoader_Load_empty(t *testing.T) {
	l := &config.Loader{}
	_, diags := l.Load("testdata/empty")
	if !diags.HasErrors() {
		t.Error("Load() with no config should return diagnostics")
	}
}

func mustAbs(t *testing.T, dir string) string {
	t.Helper()
	abs, err := filepath.Abs(dir)
	if err != nil {
		t.Fatal(err)
	}
	return abs
}
