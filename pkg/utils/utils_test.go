package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetLocalIP(t *testing.T) {
	ip, err := GetLocalIP()
	if err != nil {
		t.Errorf("GetLocalIP returned error: %v", err)
	}
	if ip == "" {
		t.Error("GetLocalIP returned empty IP string")
	}
}

func TestSecureJoin(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "sample.txt"), []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path    string
		wantErr bool
	}{
		{"/sample.txt", false},
		{"sample.txt", false},
		{"/", false},
		{"/sub", false},
		{"/../../etc/passwd", true},
		{"/../sample.txt", true},
		{"/sub/../../outside", true},
	}

	for _, tt := range tests {
		got, err := SecureJoin(root, tt.path)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SecureJoin(%q) = %q, want error", tt.path, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("SecureJoin(%q) returned error: %v", tt.path, err)
			continue
		}
		resolvedRoot, _ := filepath.EvalSymlinks(root)
		if !strings.HasPrefix(got, resolvedRoot) {
			t.Errorf("SecureJoin(%q) = %q escapes root %q", tt.path, got, resolvedRoot)
		}
	}
}

func TestSecureJoinTraversalNeverEscapes(t *testing.T) {
	root := t.TempDir()

	traversals := []string{
		"../../etc/passwd",
		"..%2F..%2Fetc%2Fpasswd", // already decoded by net/url in practice, raw here
		"....//....//etc/passwd",
		"/..",
	}

	for _, p := range traversals {
		got, err := SecureJoin(root, p)
		if err != nil {
			continue
		}
		resolvedRoot, _ := filepath.EvalSymlinks(root)
		if !strings.HasPrefix(got, resolvedRoot) {
			t.Errorf("SecureJoin(%q) = %q escapes root", p, got)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"report.txt", "report.txt", false},
		{"local.bin", "local.bin", false},
		{"my file.txt", "my_file.txt", false},
		{"my-file.txt", "my_file.txt", false},
		{"../../etc/passwd", "passwd", false},
		{"/absolute/path/evil.sh", "evil.sh", false},
		{"..\\..\\windows\\evil.exe", "evil.exe", false},
		{"archive.tar.gz", "", true}, // more than one dot
		{"..", "", true},
		{".", "", true},
		{"", "", true},
		{"...", "", true},
		{"___", "", true},
	}

	for _, tt := range tests {
		got, err := SanitizeFilename(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("SanitizeFilename(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
