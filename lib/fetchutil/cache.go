package fetchutil

import (
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
)

func cacheKey(method, link, body string) string {
	h := sha1.New()
	h.Write([]byte(method))
	h.Write([]byte{'\n'})
	h.Write([]byte(link))
	h.Write([]byte{'\n'})
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}

type diskCache struct {
	directory string
}

func newDiskCache(dir string) (*diskCache, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return nil, err
	}
	return &diskCache{directory: dir}, nil
}

func (c *diskCache) get(key string) ([]byte, bool) {
	body, err := os.ReadFile(filepath.Join(c.directory, key))
	if err != nil {
		return nil, false
	}
	return body, true
}

func (c *diskCache) put(key string, body []byte) {
	err := os.WriteFile(filepath.Join(c.directory, key), body, 0644)
	if err != nil {
		slog.Warn("failed to write response cache entry", "key", key, "err", err)
	}
}
