package tags

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/kris-hansen/tagup/utils/fileutil"
)

type storeEntry struct {
	modTime time.Time
	size    int64
	sum     uint64
	list    *TagList
}

// Store caches parsed tag lists by path. A list is re-read when the file's
// size or modification time changes, and re-parsed only when its content hash
// changes. Store is safe for concurrent use.
type Store struct {
	cache  *cache.Cache
	logger *zap.Logger
}

// NewStore creates an empty store. A nil logger disables logging.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		cache:  cache.New(cache.NoExpiration, 0),
		logger: logger,
	}
}

// Load returns the tag list at path
func (s *Store) Load(path string) (*TagList, error) {
	expanded, err := fileutil.ExpandPath(path)
	if err != nil {
		return nil, fmt.Errorf("expand tag list path: %w", err)
	}
	key := filepath.Clean(expanded)

	info, err := os.Stat(key)
	if err != nil {
		return nil, err
	}

	var prev *storeEntry
	if v, ok := s.cache.Get(key); ok {
		prev = v.(*storeEntry)
		if prev.size == info.Size() && prev.modTime.Equal(info.ModTime()) {
			return prev.list, nil
		}
	}

	data, err := fileutil.SafeReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("read tag list: %w", err)
	}
	sum := xxhash.Sum64(data)

	entry := &storeEntry{modTime: info.ModTime(), size: info.Size(), sum: sum}
	if prev != nil && prev.sum == sum {
		entry.list = prev.list
	} else {
		entry.list = ParseTagList(data)
		s.logger.Debug("loaded tag list",
			zap.String("path", key),
			zap.Int("tags", entry.list.Len()),
			zap.Uint64("xxhash", sum))
	}
	s.cache.Set(key, entry, cache.NoExpiration)
	return entry.list, nil
}

// LoadOptional is Load, except a missing file yields an empty list
func (s *Store) LoadOptional(path string) (*TagList, error) {
	list, err := s.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("tag list not found, using empty list", zap.String("path", path))
		return NewTagList(nil), nil
	}
	return list, err
}

// Len returns the number of cached lists
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Flush drops every cached list
func (s *Store) Flush() {
	s.cache.Flush()
}
