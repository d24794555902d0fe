package web

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTokenFile(t *testing.T, content string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "ndktoken")
	if err != nil {
		t.Fatalf("getting temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "token")
	if err := ioutil.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing token file: %v", err)
	}
	return path
}

func TestLoadTokenStripsTrailingNewline(t *testing.T) {
	tests := []struct {
		name    string
		content string
		exp     string
	}{
		{name: "unix newline", content: "abc123\n", exp: "abc123"},
		{name: "windows newline", content: "abc123\r\n", exp: "abc123"},
		{name: "no newline", content: "abc123", exp: "abc123"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tok, err := LoadToken(writeTokenFile(t, test.content))
			if err != nil {
				t.Fatalf("loading token: %v", err)
			}
			if tok != test.exp {
				t.Fatalf("expected %q, got %q", test.exp, tok)
			}
		})
	}
}

func TestLoadTokenErrors(t *testing.T) {
	if _, err := LoadToken(writeTokenFile(t, "\n")); err == nil {
		t.Fatal("expected error for empty credential file")
	}
	if _, err := LoadToken("/does/not/exist"); err == nil {
		t.Fatal("expected error for absent credential file")
	}
}

func TestWithTokenFileFailureFailsConstruction(t *testing.T) {
	_, err := NewSource("http://example.com",
		WithTokenFile("/does/not/exist"),
		WithTimeout(time.Second))
	if err == nil {
		t.Fatal("expected NewSource to fail when the credential cannot load")
	}
}

func TestWithTokenFileSetsToken(t *testing.T) {
	src, err := NewSource("http://example.com",
		WithTokenFile(writeTokenFile(t, "sekret\n")),
		WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("getting source: %v", err)
	}
	if src.token != "sekret" {
		t.Fatalf("expected stripped token, got %q", src.token)
	}
}
