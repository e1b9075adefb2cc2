package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JumajiCa/ChatDVC/internal/logger"
	"github.com/JumajiCa/ChatDVC/internal/models"
)

// CookieStore persists the authentication cookies of one user between
// browser processes. Missing or unreadable data is reported as absent.
type CookieStore interface {
	Load(ctx context.Context, userID string) ([]models.PortalCookie, bool)
	Save(ctx context.Context, userID string, cookies []models.PortalCookie) error
}

var cookieFileID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

var errUnsafeUserID = errors.New("user id not usable as a cookie file name")

// FileCookieStore writes one JSON file per user under Dir.
type FileCookieStore struct {
	Dir string
}

func NewFileCookieStore(dir string) (*FileCookieStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cookie directory: %w", err)
	}
	return &FileCookieStore{Dir: dir}, nil
}

// path refuses ids outside [A-Za-z0-9_-] instead of rewriting them, so two
// users can never share a file.
func (s *FileCookieStore) path(userID string) (string, error) {
	if !cookieFileID.MatchString(userID) {
		return "", fmt.Errorf("%w: %q", errUnsafeUserID, userID)
	}
	return filepath.Join(s.Dir, "cookies_"+userID+".json"), nil
}

func (s *FileCookieStore) Load(_ context.Context, userID string) ([]models.PortalCookie, bool) {
	path, err := s.path(userID)
	if err != nil {
		logger.WithUser(userID).WithError(err).Warn("refusing cookie lookup")
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.WithUser(userID).WithError(err).Warn("cookie file unreadable, treating as absent")
		}
		return nil, false
	}
	return decodeCookies(userID, data)
}

// Save replaces the user's file atomically; concurrent writers resolve as
// last writer wins.
func (s *FileCookieStore) Save(_ context.Context, userID string, cookies []models.PortalCookie) error {
	path, err := s.path(userID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "cookies-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cookie file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cookies: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cookie file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cookie file: %w", err)
	}
	return nil
}

const redisCookieKeyPrefix = "portal_cookies:"

// redisKV is the slice of *redis.Client the cookie store needs.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCookieStore keeps the same JSON document under portal_cookies:<id>,
// expiring after ttl so abandoned portal logins age out.
type RedisCookieStore struct {
	rdb redisKV
	ttl time.Duration
}

func NewRedisCookieStore(rdb redisKV, ttl time.Duration) *RedisCookieStore {
	return &RedisCookieStore{rdb: rdb, ttl: ttl}
}

func (s *RedisCookieStore) Load(ctx context.Context, userID string) ([]models.PortalCookie, bool) {
	data, err := s.rdb.Get(ctx, redisCookieKeyPrefix+userID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithUser(userID).WithError(err).Warn("cookie lookup failed, treating as absent")
		}
		return nil, false
	}
	return decodeCookies(userID, data)
}

func (s *RedisCookieStore) Save(ctx context.Context, userID string, cookies []models.PortalCookie) error {
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	if err := s.rdb.Set(ctx, redisCookieKeyPrefix+userID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store cookies: %w", err)
	}
	return nil
}

func decodeCookies(userID string, data []byte) ([]models.PortalCookie, bool) {
	var cookies []models.PortalCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		logger.WithUser(userID).WithError(err).Warn("stored cookies are corrupt, treating as absent")
		return nil, false
	}
	if len(cookies) == 0 {
		return nil, false
	}
	return cookies, true
}
