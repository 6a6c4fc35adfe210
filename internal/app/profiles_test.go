package app_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"movie-trivia-service/internal/app"
	"movie-trivia-service/internal/domain"
	"movie-trivia-service/internal/infra/blob"
	"movie-trivia-service/internal/infra/memory"
)

func TestProfileDefaultsAndRename(t *testing.T) {
	ctx := context.Background()
	svc := app.NewProfileService(memory.NewProfileStore(), blob.NewAvatarStore(afero.NewMemMapFs()))

	p, err := svc.Get(ctx, "p1")
	if err != nil || p.DisplayName != "Anon" {
		t.Fatalf("expected anonymous default, got %+v %v", p, err)
	}

	p, err = svc.UpdateName(ctx, "p1", "  Marta  ")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if p.DisplayName != "Marta" {
		t.Fatalf("expected trimmed name, got %q", p.DisplayName)
	}
	if _, err := svc.UpdateName(ctx, "p1", "x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid name, got %v", err)
	}
}

func TestUploadAndOpenAvatar(t *testing.T) {
	ctx := context.Background()
	svc := app.NewProfileService(memory.NewProfileStore(), blob.NewAvatarStore(afero.NewMemMapFs()))

	p, err := svc.UploadAvatar(ctx, "p1", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if p.AvatarURL != "/avatars/p1/avatar.png" {
		t.Fatalf("unexpected avatar url %q", p.AvatarURL)
	}

	rc, contentType, err := svc.OpenAvatar(ctx, "p1", "avatar.png")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if string(body) != "png-bytes" || contentType != "image/png" {
		t.Fatalf("unexpected avatar %q %s", body, contentType)
	}

	if _, err := svc.UploadAvatar(ctx, "p1", "text/html", strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected unsupported type rejected, got %v", err)
	}
	if _, _, err := svc.OpenAvatar(ctx, "p1", "../secret"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected traversal rejected, got %v", err)
	}
}
