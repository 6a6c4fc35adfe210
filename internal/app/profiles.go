package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"movie-trivia-service/internal/domain"
)

// MaxAvatarBytes bounds an avatar upload.
const MaxAvatarBytes = 2 << 20

var avatarExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// ProfileService reads and edits player profiles.
type ProfileService struct {
	profiles ProfileRepository
	avatars  AvatarStore
}

func NewProfileService(profiles ProfileRepository, avatars AvatarStore) *ProfileService {
	return &ProfileService{profiles: profiles, avatars: avatars}
}

// Get returns the profile of playerID, or an anonymous one if none is stored.
func (p *ProfileService) Get(ctx context.Context, playerID string) (domain.Profile, error) {
	profile, err := p.profiles.Get(ctx, playerID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Profile{PlayerID: playerID, DisplayName: anonymousName}, nil
	}
	return profile, err
}

// UpdateName changes the display name.
func (p *ProfileService) UpdateName(ctx context.Context, playerID, name string) (domain.Profile, error) {
	name = strings.TrimSpace(name)
	if err := validateUsername(name); err != nil {
		return domain.Profile{}, err
	}
	profile, err := p.Get(ctx, playerID)
	if err != nil {
		return domain.Profile{}, err
	}
	profile.DisplayName = name
	if err := p.profiles.Upsert(ctx, profile); err != nil {
		return domain.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// UploadAvatar stores an image under a path derived from playerID, so a new
// upload replaces the previous one of the same type.
func (p *ProfileService) UploadAvatar(ctx context.Context, playerID, contentType string, r io.Reader) (domain.Profile, error) {
	ext, ok := avatarExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return domain.Profile{}, fmt.Errorf("%w: unsupported avatar type %q", domain.ErrInvalidInput, contentType)
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxAvatarBytes+1))
	if err != nil {
		return domain.Profile{}, fmt.Errorf("read avatar: %w", err)
	}
	if len(data) == 0 || len(data) > MaxAvatarBytes {
		return domain.Profile{}, fmt.Errorf("%w: avatar must be between 1 byte and %d bytes", domain.ErrInvalidInput, MaxAvatarBytes)
	}
	key := AvatarPath(playerID, ext)
	if err := p.avatars.Put(ctx, key, bytes.NewReader(data)); err != nil {
		return domain.Profile{}, fmt.Errorf("store avatar: %w", err)
	}

	profile, err := p.Get(ctx, playerID)
	if err != nil {
		return domain.Profile{}, err
	}
	profile.AvatarURL = "/avatars/" + key
	if err := p.profiles.Upsert(ctx, profile); err != nil {
		return domain.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// OpenAvatar streams a stored avatar. The caller closes the reader.
func (p *ProfileService) OpenAvatar(ctx context.Context, playerID, file string) (io.ReadCloser, string, error) {
	if strings.ContainsAny(playerID, `/\`) || path.Base(file) != file || !strings.HasPrefix(file, "avatar.") {
		return nil, "", domain.ErrNotFound
	}
	ext := strings.TrimPrefix(file, "avatar.")
	contentType := ""
	for ct, e := range avatarExtensions {
		if e == ext {
			contentType = ct
		}
	}
	if contentType == "" {
		return nil, "", domain.ErrNotFound
	}
	rc, err := p.avatars.Open(ctx, AvatarPath(playerID, ext))
	if err != nil {
		return nil, "", err
	}
	return rc, contentType, nil
}

// AvatarPath is the storage key of a player's avatar.
func AvatarPath(playerID, ext string) string {
	return playerID + "/avatar." + ext
}
