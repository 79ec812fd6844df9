package archive

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	info, err := s.Put(ctx, "saves/ana/1.json", strings.NewReader(`{"player":"ana"}`), PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(`{"player":"ana"}`)) {
		t.Fatalf("unexpected size %d", info.Size)
	}
	if _, err := s.Put(ctx, "saves/ana/1.json", strings.NewReader("again"), PutOptions{}); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, "saves/ana/2.json", strings.NewReader("{}"), PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if _, err := s.Put(ctx, "saves/bo/1.json", strings.NewReader("{}"), PutOptions{}); err != nil {
		t.Fatalf("put other player: %v", err)
	}

	got, rc, err := s.Get(ctx, "saves/ana/1.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"player":"ana"}` || got.ContentType != "application/json" {
		t.Fatalf("unexpected object %q %+v", body, got)
	}
	if _, _, err := s.Get(ctx, "saves/nobody.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := s.List(ctx, "saves/ana/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "saves/ana/1.json" || list[1].Key != "saves/ana/2.json" {
		t.Fatalf("unexpected listing %+v", list)
	}

	if ok, err := s.Delete(ctx, "saves/ana/2.json"); err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if ok, err := s.Delete(ctx, "saves/ana/2.json"); err != nil || ok {
		t.Fatalf("delete missing: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	if s.Driver() != DriverMemory {
		t.Fatalf("unexpected driver")
	}
	exerciseStore(t, s)
}

func TestFSStore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "archive")
	s, err := NewFS(root)
	if err != nil {
		t.Fatalf("new fs: %v", err)
	}
	exerciseStore(t, s)
	if _, err := os.Stat(filepath.Join(root, "saves", "ana", "1.json.meta")); err != nil {
		t.Fatalf("expected metadata sidecar: %v", err)
	}
}

func TestFSRejectsTraversal(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("new fs: %v", err)
	}
	for _, key := range []string{"", "../x", "/abs", "x.meta"} {
		if _, err := s.Put(context.Background(), key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("expected rejection for key %q", key)
		}
	}
}

func TestS3StoreAgainstFakeTransport(t *testing.T) {
	fake := newFakeS3()
	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "saves-bucket",
		Endpoint:        "https://mock.s3.local",
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      fake.client(),
	})
	if err != nil {
		t.Fatalf("new s3: %v", err)
	}
	if s.Driver() != DriverS3 {
		t.Fatalf("unexpected driver")
	}
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	if s, err := Open(ctx, Options{}); err != nil || s != nil {
		t.Fatalf("expected disabled archive, got %v %v", s, err)
	}
	if s, err := Open(ctx, Options{Driver: DriverMemory}); err != nil || s.Driver() != DriverMemory {
		t.Fatalf("memory open failed: %v", err)
	}
	if s, err := Open(ctx, Options{Driver: DriverFilesystem, FSRoot: t.TempDir()}); err != nil || s.Driver() != DriverFilesystem {
		t.Fatalf("fs open failed: %v", err)
	}
	if _, err := Open(ctx, Options{Driver: DriverS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if _, err := Open(ctx, Options{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
