package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestObjectKeyKeepsFolderAndExtension(t *testing.T) {
	key := ObjectKey("facturas", "factura_12.pdf")
	if !strings.HasPrefix(key, "facturas/factura_12_") || !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("unexpected key %q", key)
	}
	if ObjectKey("facturas", "factura_12.pdf") == key {
		t.Fatal("keys should be unique")
	}
}

func TestValidateContentType(t *testing.T) {
	if err := ValidateContentType("application/pdf; charset=binary"); err != nil {
		t.Fatalf("pdf rejected: %v", err)
	}
	if err := ValidateContentType("video/mp4"); err == nil {
		t.Fatal("video accepted")
	}
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	path, err := store.Save(context.Background(), "facturas", "factura_3.pdf", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(path, dir) || filepath.Ext(path) != ".pdf" {
		t.Fatalf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("read back %q, %v", data, err)
	}
}
