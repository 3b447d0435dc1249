package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestLocalStoreCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "a", "b")

	location, err := NewLocalStore().Save(context.Background(), dir, "out.png", []byte("png"))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if location != filepath.Join(dir, "out.png") {
		t.Fatalf("unexpected location: %s", location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != "png" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestLocalStoreRejectsEmptyContent(t *testing.T) {
	_, err := NewLocalStore().Save(context.Background(), t.TempDir(), "out.png", nil)
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	_, err := NewLocalStore().Save(context.Background(), t.TempDir(), "../escape.png", []byte("x"))
	if !errors.Is(err, ErrInvalidFilename) {
		t.Fatalf("expected ErrInvalidFilename, got %v", err)
	}
}

type recordingStore struct {
	saved []string
	err   error
}

func (r *recordingStore) Save(ctx context.Context, dir, filename string, data []byte) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.saved = append(r.saved, filepath.Join(dir, filename))
	return "mirror://" + filename, nil
}

func TestTeeIgnoresMirrorFailures(t *testing.T) {
	primary := &recordingStore{}
	broken := &recordingStore{err: errors.New("bucket offline")}
	healthy := &recordingStore{}

	location, err := NewTee(zap.NewNop(), primary, broken, healthy).Save(context.Background(), "out", "x.png", []byte("x"))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if location != "mirror://x.png" {
		t.Fatalf("expected primary location, got %s", location)
	}
	if len(primary.saved) != 1 || len(healthy.saved) != 1 {
		t.Fatalf("expected primary and healthy mirror to be written: %v %v", primary.saved, healthy.saved)
	}
}

func TestTeeFailsWhenPrimaryFails(t *testing.T) {
	primary := &recordingStore{err: errors.New("disk full")}
	mirror := &recordingStore{}

	if _, err := NewTee(zap.NewNop(), primary, mirror).Save(context.Background(), "out", "x.png", []byte("x")); err == nil {
		t.Fatal("expected error")
	}
	if len(mirror.saved) != 0 {
		t.Fatal("mirror must not be written when primary fails")
	}
}

func TestMinioStoreObjectNames(t *testing.T) {
	var gotName, gotType string
	store := &MinioStore{
		config: MinioConfig{Bucket: "results", Prefix: "/srv/uploads"},
		put: func(ctx context.Context, objectName string, data []byte, contentType string) error {
			gotName, gotType = objectName, contentType
			return nil
		},
	}

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	location, err := store.Save(context.Background(), "/srv/uploads/iopaint/2025-01-02", "a.png", png)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if gotName != "iopaint/2025-01-02/a.png" {
		t.Fatalf("unexpected object name: %s", gotName)
	}
	if gotType != "image/png" {
		t.Fatalf("unexpected content type: %s", gotType)
	}
	if location != "s3://results/iopaint/2025-01-02/a.png" {
		t.Fatalf("unexpected location: %s", location)
	}
}
