package storage

import (
	"reflect"
	"testing"

	"github.com/GoCodeAlone/workflow-components/plugin"
)

func TestNew(t *testing.T) {
	p := New()
	if p.Name() != "storage" {
		t.Fatalf("expected name storage, got %s", p.Name())
	}
	if p.Version() != "1.0.0" {
		t.Fatalf("expected version 1.0.0, got %s", p.Version())
	}
	if p.Description() == "" {
		t.Fatal("expected non-empty description")
	}
	if err := plugin.Validate(p); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestManifestComponents(t *testing.T) {
	want := []string{"storage.s3_upload", "storage.s3_download", "storage.gcs_upload", "storage.azure_blob_upload"}
	if got := plugin.ManifestOf(New()).Components; !reflect.DeepEqual(got, want) {
		t.Errorf("components = %v, want %v", got, want)
	}
	for _, reg := range New().Components() {
		if err := reg.Descriptor.Validate(); err != nil {
			t.Errorf("%s: %v", reg.Descriptor.Name, err)
		}
	}
}
