package pii

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDetectorFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "detectors.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write detector file: %v", err)
	}
	return path
}

func TestBuildRegistry(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantNames []string
		expectErr bool
	}{
		{
			name: "append customer id",
			content: `
detectors:
  - name: customer_id
    pattern: '\bcustomer_id=\d{5}\b'
`,
			wantNames: []string{"email", "phone", "dni", "ip", "customer_id"},
		},
		{
			name: "replace defaults",
			content: `
replace_defaults: true
detectors:
  - name: token
    pattern: 'token=\w+'
`,
			wantNames: []string{"token"},
		},
		{
			name:      "empty file keeps defaults",
			content:   "",
			wantNames: []string{"email", "phone", "dni", "ip"},
		},
		{
			name: "duplicate of a default",
			content: `
detectors:
  - name: email
    pattern: 'x'
`,
			expectErr: true,
		},
		{
			name: "bad pattern",
			content: `
detectors:
  - name: broken
    pattern: '(('
`,
			expectErr: true,
		},
		{
			name:      "unknown field",
			content:   "detector: []\n",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := BuildRegistry(writeDetectorFile(t, tt.content))
			if (err != nil) != tt.expectErr {
				t.Fatalf("BuildRegistry() error = %v, wantErr %v", err, tt.expectErr)
			}
			if err != nil {
				return
			}
			got := r.Names()
			if len(got) != len(tt.wantNames) {
				t.Fatalf("Names() got = %v, want %v", got, tt.wantNames)
			}
			for i := range got {
				if got[i] != tt.wantNames[i] {
					t.Errorf("Names()[%d] got = %s, want %s", i, got[i], tt.wantNames[i])
				}
			}
		})
	}
}

func TestBuildRegistry_CustomerIDOptIn(t *testing.T) {
	path := writeDetectorFile(t, `
detectors:
  - name: customer_id
    pattern: '\b\d{5}\b'
`)
	r, err := BuildRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	got := NewAnonymizer(r).Anonymize("customer_id=54321")
	if got == "customer_id=54321" {
		t.Errorf("expected the 5 digit id to be masked, got %q", got)
	}
}

func TestBuildRegistry_NoPath(t *testing.T) {
	r, err := BuildRegistry("")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Names()) != 4 {
		t.Errorf("expected default detectors, got %v", r.Names())
	}
}

func TestBuildRegistry_MissingFile(t *testing.T) {
	if _, err := BuildRegistry(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing detector file")
	}
}
