package ingestion_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/catalog-ingester/internal/catalog"
	"github.com/stacklok/catalog-ingester/internal/descriptors"
	"github.com/stacklok/catalog-ingester/internal/ingestion"
)

const validDescriptor = `apiVersion: catalog.backstage.io/v1
kind: Component
metadata:
  name: svc-a
spec:
  type: service
`

const mixedDescriptors = validDescriptor + `---
apiVersion: catalog.backstage.io/v1
kind: Widget
metadata:
  name: w
`

func writeFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog-info.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestFileReader_Read(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		content        string
		wantComponents []string
		wantErrors     int
	}{
		{
			name:           "single component",
			content:        validDescriptor,
			wantComponents: []string{"svc-a"},
		},
		{
			name:           "component and unsupported kind",
			content:        mixedDescriptors,
			wantComponents: []string{"svc-a"},
			wantErrors:     1,
		},
		{
			name:    "empty file",
			content: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, tt.content)
			reader := ingestion.NewFileReader(descriptors.NewParser(nil))

			output, err := reader.Read(context.Background(), path)
			require.NoError(t, err)

			names := make([]string, 0, len(output.Components))
			for _, c := range output.Components {
				names = append(names, c.GetName())
			}
			if tt.wantComponents == nil {
				assert.Empty(t, names)
			} else {
				assert.Equal(t, tt.wantComponents, names)
			}
			assert.Len(t, output.Errors, tt.wantErrors)
		})
	}
}

func TestFileReader_Read_FileURIPrefix(t *testing.T) {
	t.Parallel()

	path := writeFile(t, validDescriptor)
	output, err := ingestion.NewFileReader(descriptors.NewParser(nil)).Read(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Len(t, output.Components, 1)
}

func TestFileReader_Read_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name    string
		target  string
		wantErr error
	}{
		{name: "missing file", target: filepath.Join(dir, "missing.yaml"), wantErr: ingestion.ErrTargetNotFound},
		{name: "directory", target: dir, wantErr: ingestion.ErrInvalidTarget},
		{name: "empty target", target: "", wantErr: ingestion.ErrInvalidTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ingestion.NewFileReader(descriptors.NewParser(nil)).Read(context.Background(), tt.target)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "unexpected error: %v", err)
		})
	}
}

func TestFileReader_Read_InvalidUTF8(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "name: \xff\xfe\n")
	_, err := ingestion.NewFileReader(descriptors.NewParser(nil)).Read(context.Background(), path)
	assert.True(t, errors.Is(err, descriptors.ErrDecodeFailure))
}

func TestDefaultRegistry_ReadsFileLocation(t *testing.T) {
	t.Parallel()

	path := writeFile(t, validDescriptor)
	registry := ingestion.NewDefaultRegistry(nil)

	output, err := registry.Read(context.Background(), catalog.Location{ID: "a", Type: ingestion.LocationTypeFile, Target: path})
	require.NoError(t, err)
	require.Len(t, output.Components, 1)
	assert.Equal(t, "svc-a", output.Components[0].GetName())
}
