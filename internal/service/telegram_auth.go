package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInitDataInvalid = errors.New("неверная подпись init_data")
	ErrInitDataExpired = errors.New("init_data устарела")
)

const initDataMaxAge = time.Hour

// пользователь из init_data мини-приложения
type TelegramUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LanguageCode string `json:"language_code"`
}

// telegramSecret ключ подписи: HMAC-SHA256("WebAppData", botToken)
func telegramSecret(botToken string) []byte {
	h := hmac.New(sha256.New, []byte("WebAppData"))
	h.Write([]byte(botToken))
	return h.Sum(nil)
}

// dataCheckString отсортированные пары key=value без hash
func dataCheckString(values url.Values) string {
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		if k == "hash" {
			continue
		}
		pairs = append(pairs, k+"="+strings.Join(v, ""))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "\n")
}

// SignInitData подпись для набора полей, обратная проверке
func SignInitData(values url.Values, botToken string) string {
	h := hmac.New(sha256.New, telegramSecret(botToken))
	h.Write([]byte(dataCheckString(values)))
	return hex.EncodeToString(h.Sum(nil))
}

// ValidateTelegramInitData проверяет подпись init_data и возраст auth_date
func ValidateTelegramInitData(initData, botToken string, now time.Time) (*TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrInitDataInvalid
	}

	provided, err := hex.DecodeString(values.Get("hash"))
	if err != nil || len(provided) == 0 {
		return nil, ErrInitDataInvalid
	}
	expected, _ := hex.DecodeString(SignInitData(values, botToken))
	if !hmac.Equal(expected, provided) {
		return nil, ErrInitDataInvalid
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrInitDataInvalid
	}
	issued := time.Unix(authDate, 0)
	// небольшой запас на расхождение часов
	if now.Sub(issued) > initDataMaxAge || issued.Sub(now) > 5*time.Minute {
		return nil, ErrInitDataExpired
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, ErrInitDataInvalid
	}
	return &user, nil
}
