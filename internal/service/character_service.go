package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"roleplay_bot/internal/domain"
	"roleplay_bot/internal/i18n"
	"roleplay_bot/internal/logger"
)

const (
	TopLimit         = 10
	maxCharacterName = 64
	maxShortField    = 64
	maxLongField     = 1024
	maxCharacterAge  = 100000
)

var (
	ErrInvalidCharacterName = errors.New("неверное имя персонажа")
	ErrInvalidImageURL      = errors.New("неверная ссылка на изображение")
	ErrUnsupportedLanguage  = errors.New("язык не поддерживается")
	ErrInvalidProfileField  = errors.New("неверное поле профиля")
)

// CharacterProfile изменяемые поля анкеты; nil - не трогать, "" - очистить
type CharacterProfile struct {
	Title       *string `json:"title"`
	EmbedColor  *string `json:"embed_color"`
	Age         *int    `json:"age"`
	Race        *string `json:"race"`
	Gender      *string `json:"gender"`
	Pronouns    *string `json:"pronouns"`
	Appearance  *string `json:"appearance"`
	Backstory   *string `json:"backstory"`
	Personality *string `json:"personality"`
}

// Empty true, если ни одно поле не задано
func (p CharacterProfile) Empty() bool {
	return p.Title == nil && p.EmbedColor == nil && p.Age == nil && p.Race == nil &&
		p.Gender == nil && p.Pronouns == nil && p.Appearance == nil && p.Backstory == nil &&
		p.Personality == nil
}

// ProfileFieldNames ключи для ParseProfileField
var ProfileFieldNames = []string{
	"title", "color", "age", "race", "gender", "pronouns", "appearance", "backstory", "personality",
}

// ParseProfileField разбирает одну пару ключ=значение из чата
func ParseProfileField(key, value string) (CharacterProfile, error) {
	var p CharacterProfile
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "title":
		p.Title = &value
	case "color", "embed_color":
		p.EmbedColor = &value
	case "age":
		if value == "" {
			p.Age = new(int)
			break
		}
		age, err := strconv.Atoi(value)
		if err != nil {
			return p, ErrInvalidProfileField
		}
		p.Age = &age
	case "race":
		p.Race = &value
	case "gender":
		p.Gender = &value
	case "pronouns":
		p.Pronouns = &value
	case "appearance":
		p.Appearance = &value
	case "backstory":
		p.Backstory = &value
	case "personality":
		p.Personality = &value
	default:
		return p, ErrInvalidProfileField
	}
	return p, nil
}

func validText(v *string, limit int) bool {
	return v == nil || utf8.RuneCountInString(strings.TrimSpace(*v)) <= limit
}

func (p CharacterProfile) validate() error {
	for _, v := range []*string{p.Title, p.Race, p.Gender, p.Pronouns} {
		if !validText(v, maxShortField) {
			return ErrInvalidProfileField
		}
	}
	for _, v := range []*string{p.Appearance, p.Backstory, p.Personality} {
		if !validText(v, maxLongField) {
			return ErrInvalidProfileField
		}
	}
	if p.EmbedColor != nil && *p.EmbedColor != "" && !embedColorRe.MatchString(*p.EmbedColor) {
		return ErrInvalidProfileField
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > maxCharacterAge) {
		return ErrInvalidProfileField
	}
	return nil
}

func (p CharacterProfile) apply(c *domain.Character) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&c.Title, p.Title)
	set(&c.Race, p.Race)
	set(&c.Gender, p.Gender)
	set(&c.Pronouns, p.Pronouns)
	set(&c.Appearance, p.Appearance)
	set(&c.Backstory, p.Backstory)
	set(&c.Personality, p.Personality)
	if p.EmbedColor != nil {
		color := strings.TrimSpace(*p.EmbedColor)
		if color != "" && !strings.HasPrefix(color, "#") {
			color = "#" + color
		}
		c.EmbedColor = strings.ToUpper(color)
	}
	if p.Age != nil {
		// 0 очищает возраст
		if *p.Age == 0 {
			c.Age = nil
		} else {
			age := *p.Age
			c.Age = &age
		}
	}
}

// CharacterService персонажи и пользовательские настройки
type CharacterService struct {
	characters  CharacterStore
	users       UserStore
	ranker      Ranker
	audit       *AuditService
	defaultLang string
	log         *slog.Logger
}

// ranker может быть nil
func NewCharacterService(characters CharacterStore, users UserStore, ranker Ranker, audit *AuditService, defaultLang string) *CharacterService {
	return &CharacterService{
		characters:  characters,
		users:       users,
		ranker:      ranker,
		audit:       audit,
		defaultLang: i18n.Normalize(defaultLang),
		log:         logger.With("component", "characters"),
	}
}

// User возвращает пользователя, создавая его с языком по умолчанию
func (s *CharacterService) User(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetOrCreate(ctx, userID, s.defaultLang)
}

func (s *CharacterService) Get(ctx context.Context, id int64) (*domain.Character, error) {
	return s.characters.GetByID(ctx, id)
}

func (s *CharacterService) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Character, error) {
	return s.characters.ListByOwner(ctx, ownerID)
}

// Create новый персонаж уровня 1. Первый персонаж сразу становится текущим.
func (s *CharacterService) Create(ctx context.Context, ownerID int64, name, imageURL string) (*domain.Character, error) {
	return s.CreateWithProfile(ctx, ownerID, name, imageURL, CharacterProfile{})
}

// CreateWithProfile как Create, но сразу с полями анкеты
func (s *CharacterService) CreateWithProfile(ctx context.Context, ownerID int64, name, imageURL string, p CharacterProfile) (*domain.Character, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxCharacterName {
		return nil, ErrInvalidCharacterName
	}
	imageURL = strings.TrimSpace(imageURL)
	if imageURL != "" && !IsAbsoluteURL(imageURL) {
		return nil, ErrInvalidImageURL
	}

	user, err := s.User(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	c := &domain.Character{
		OwnerID:  ownerID,
		Name:     name,
		ImageURL: imageURL,
		Level:    1,
		Exp:      0,
	}
	p.apply(c)
	if err := s.characters.Create(ctx, c); err != nil {
		return nil, err
	}

	if user.CurrentCharacterID == nil {
		id := c.ID
		user.CurrentCharacterID = &id
		if err := s.users.Update(ctx, user); err != nil {
			s.log.Warn("failed to set current character", "user_id", ownerID, "error", err)
		}
	}
	if s.ranker != nil {
		if err := s.ranker.Record(ctx, c); err != nil {
			s.log.Warn("failed to update leaderboard", "character_id", c.ID, "error", err)
		}
	}

	s.audit.LogCharacter(ctx, ownerID, domain.AuditActionCharacterCreate, c)
	return c, nil
}

// owned загружает персонажа и проверяет владельца
func (s *CharacterService) owned(ctx context.Context, ownerID, characterID int64) (*domain.Character, error) {
	c, err := s.characters.GetByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCharacterNotFound
	}
	if c.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return c, nil
}

// UpdateProfile меняет поля анкеты своего персонажа
func (s *CharacterService) UpdateProfile(ctx context.Context, ownerID, characterID int64, p CharacterProfile) (*domain.Character, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	c, err := s.owned(ctx, ownerID, characterID)
	if err != nil {
		return nil, err
	}
	p.apply(c)

	ok, err := s.characters.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCharacterVanished
	}

	s.audit.LogCharacter(ctx, ownerID, domain.AuditActionCharacterUpdate, c)
	return c, nil
}

func (s *CharacterService) Delete(ctx context.Context, ownerID, characterID int64) (*domain.Character, error) {
	c, err := s.owned(ctx, ownerID, characterID)
	if err != nil {
		return nil, err
	}
	if err := s.characters.Delete(ctx, c.ID); err != nil {
		return nil, err
	}

	user, err := s.User(ctx, ownerID)
	if err == nil && user.CurrentCharacterID != nil && *user.CurrentCharacterID == c.ID {
		user.CurrentCharacterID = nil
		if err := s.users.Update(ctx, user); err != nil {
			s.log.Warn("failed to clear current character", "user_id", ownerID, "error", err)
		}
	}
	if s.ranker != nil {
		if err := s.ranker.Remove(ctx, c.ID); err != nil {
			s.log.Warn("failed to remove from leaderboard", "character_id", c.ID, "error", err)
		}
	}

	s.audit.LogCharacter(ctx, ownerID, domain.AuditActionCharacterDelete, c)
	return c, nil
}

// ChooseCurrent делает персонажа текущим для владельца
func (s *CharacterService) ChooseCurrent(ctx context.Context, ownerID, characterID int64) (*domain.Character, error) {
	c, err := s.owned(ctx, ownerID, characterID)
	if err != nil {
		return nil, err
	}
	user, err := s.User(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	id := c.ID
	user.CurrentCharacterID = &id
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return c, nil
}

// ClearCurrent снимает текущего персонажа: сообщения снова идут как обычный чат.
// Возвращает снятого персонажа или nil, если никто не был выбран.
func (s *CharacterService) ClearCurrent(ctx context.Context, userID int64) (*domain.Character, error) {
	c, user, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CurrentCharacterID == nil {
		return nil, nil
	}
	user.CurrentCharacterID = nil
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return c, nil
}

// Current текущий персонаж пользователя; nil, если не выбран или уже удален
func (s *CharacterService) Current(ctx context.Context, userID int64) (*domain.Character, *domain.User, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user.CurrentCharacterID == nil {
		return nil, user, nil
	}
	c, err := s.characters.GetByID(ctx, *user.CurrentCharacterID)
	if err != nil {
		return nil, user, err
	}
	return c, user, nil
}

func (s *CharacterService) SetLanguage(ctx context.Context, userID int64, lang string) (string, error) {
	if !i18n.Supported(lang) {
		return "", ErrUnsupportedLanguage
	}
	user, err := s.User(ctx, userID)
	if err != nil {
		return "", err
	}
	user.PreferredLanguage = i18n.Normalize(lang)
	if err := s.users.Update(ctx, user); err != nil {
		return "", err
	}
	return user.PreferredLanguage, nil
}

// Top лучшие персонажи по уровню и опыту. Сначала кеш рейтинга, потом база.
func (s *CharacterService) Top(ctx context.Context, limit int) ([]*domain.Character, error) {
	if limit <= 0 || limit > TopLimit {
		limit = TopLimit
	}

	if s.ranker != nil {
		ids, err := s.ranker.Top(ctx, limit)
		if err != nil {
			s.log.Warn("leaderboard unavailable, falling back to database", "error", err)
		} else if len(ids) > 0 {
			out := make([]*domain.Character, 0, len(ids))
			for _, id := range ids {
				c, err := s.characters.GetByID(ctx, id)
				if err != nil {
					return nil, err
				}
				if c != nil {
					out = append(out, c)
				}
			}
			return out, nil
		}
	}

	return s.characters.ListTop(ctx, limit)
}
