package chat

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"botpos-chat-backend/internal/apperror"
	"botpos-chat-backend/internal/dto"
	"botpos-chat-backend/internal/model"
	"botpos-chat-backend/internal/websocket"

	"github.com/google/uuid"
)

const DefaultTagColor = "#6b7280"

var tagColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func (s *Service) ListTags(ctx context.Context) ([]model.TagItem, error) {
	tags, err := s.repo.ListTags(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list tags", err)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].NameKey < tags[j].NameKey })
	return tags, nil
}

// CreateTag adds a tag to the vocabulary. Names are unique ignoring case.
func (s *Service) CreateTag(ctx context.Context, name, color string) (model.TagItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.TagItem{}, apperror.Validation("tag name is required")
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = DefaultTagColor
	}
	if !tagColorPattern.MatchString(color) {
		return model.TagItem{}, apperror.Validation("tag color must be a hex value such as #6b7280")
	}

	existing, err := s.repo.ListTags(ctx)
	if err != nil {
		return model.TagItem{}, apperror.Internal("failed to list tags", err)
	}
	key := strings.ToLower(name)
	for _, t := range existing {
		if t.NameKey == key {
			return model.TagItem{}, apperror.Conflict("a tag with this name already exists", nil)
		}
	}

	tag := model.TagItem{
		TagID:     uuid.NewString(),
		Name:      name,
		NameKey:   key,
		Color:     color,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.repo.CreateTag(ctx, tag); err != nil {
		return model.TagItem{}, apperror.PersistFailed("failed to store tag", err)
	}
	return tag, nil
}

func (s *Service) SessionTags(ctx context.Context, customerID, ch string) ([]model.TagItem, error) {
	session, err := s.resolveSession(ctx, customerID, ch)
	if err != nil {
		return nil, err
	}
	tags, err := s.tagsForSession(ctx, session.PK)
	if err != nil {
		return nil, apperror.Internal("failed to load session tags", err)
	}
	return tags, nil
}

// AddSessionTag attaches a tag. Attaching it twice is harmless.
func (s *Service) AddSessionTag(ctx context.Context, customerID, ch, tagID string) (Session, error) {
	session, err := s.resolveSession(ctx, customerID, ch)
	if err != nil {
		return Session{}, err
	}
	tagID = strings.TrimSpace(tagID)
	if tagID == "" {
		return Session{}, apperror.Validation("tagId is required")
	}
	if _, err := s.repo.GetTag(ctx, tagID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, apperror.NotFound("tag not found", err)
		}
		return Session{}, apperror.Internal("failed to load tag", err)
	}

	links, err := s.repo.ListSessionTags(ctx, session.PK)
	if err != nil {
		return Session{}, apperror.Internal("failed to load session tags", err)
	}
	if !hasTag(links, tagID) {
		err := s.repo.PutSessionTag(ctx, model.SessionTagItem{
			PK:         model.SessionTagPK(session.PK, tagID),
			SessionKey: session.PK,
			TagID:      tagID,
			CustomerID: session.CustomerID,
			CreatedAt:  s.now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return Session{}, apperror.PersistFailed("failed to tag session", err)
		}
	}
	return s.afterTagChange(ctx, session)
}

func (s *Service) RemoveSessionTag(ctx context.Context, customerID, ch, tagID string) (Session, error) {
	session, err := s.resolveSession(ctx, customerID, ch)
	if err != nil {
		return Session{}, err
	}
	links, err := s.repo.ListSessionTags(ctx, session.PK)
	if err != nil {
		return Session{}, apperror.Internal("failed to load session tags", err)
	}
	if !hasTag(links, tagID) {
		return Session{}, apperror.NotFound("tag is not attached to this session", ErrNotFound)
	}
	if err := s.repo.DeleteSessionTag(ctx, session.PK, tagID); err != nil {
		return Session{}, apperror.PersistFailed("failed to untag session", err)
	}
	return s.afterTagChange(ctx, session)
}

func (s *Service) afterTagChange(ctx context.Context, session model.SessionItem) (Session, error) {
	out, err := s.decorate(ctx, session)
	if err != nil {
		return Session{}, err
	}
	s.publish(ctx, websocket.SessionUpdate(dto.NewSessionResponse(out.SessionItem, out.Tags)))
	return out, nil
}

func (s *Service) tagsForSession(ctx context.Context, sessionKey string) ([]model.TagItem, error) {
	links, err := s.repo.ListSessionTags(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(links, func(i, j int) bool { return parseTime(links[i].CreatedAt).Before(parseTime(links[j].CreatedAt)) })

	tags := make([]model.TagItem, 0, len(links))
	for _, link := range links {
		tag, err := s.repo.GetTag(ctx, link.TagID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func hasTag(links []model.SessionTagItem, tagID string) bool {
	for _, l := range links {
		if l.TagID == tagID {
			return true
		}
	}
	return false
}
