package parser

import (
	"bytes"
	"encoding/gob"
	"sync"

	bolt "go.etcd.io/bbolt"
)

var cacheBucket = []byte("extraction_cache")

// ExtractionCache memoizes ParseFile output by language and content hash.
// It keeps a bounded in-memory tier and spills evicted entries to a bbolt
// file, so a later run (or a second process sharing the same cache path)
// can skip re-extracting a file it has already seen, even once the
// in-memory tier has moved on.
type ExtractionCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	mem      map[string]*File
	db       *bolt.DB
}

// OpenExtractionCache opens (creating if needed) a bbolt-backed spill file
// at path, bounding the in-memory tier to capacity entries. capacity <= 0
// defaults to 256.
func OpenExtractionCache(path string, capacity int) (*ExtractionCache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	if capacity <= 0 {
		capacity = 256
	}
	return &ExtractionCache{capacity: capacity, mem: make(map[string]*File), db: db}, nil
}

// Close releases the underlying bbolt handle.
func (c *ExtractionCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func cacheKey(lang, contentHash string) string {
	return lang + ":" + contentHash
}

// Get checks the in-memory tier first, then the disk spill, promoting a
// disk hit back into memory.
func (c *ExtractionCache) Get(lang, contentHash string) (*File, bool) {
	if c == nil {
		return nil, false
	}
	key := cacheKey(lang, contentHash)

	c.mu.Lock()
	if f, ok := c.mem[key]; ok {
		c.touch(key)
		c.mu.Unlock()
		return f, true
	}
	c.mu.Unlock()

	var f *File
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(cacheBucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		decoded, decErr := decodeFile(data)
		if decErr != nil {
			return decErr
		}
		f = decoded
		return nil
	})
	if err != nil || f == nil {
		return nil, false
	}

	c.mu.Lock()
	c.insert(key, f)
	c.mu.Unlock()
	return f, true
}

// Put records a fresh extraction result, evicting (and spilling to disk)
// the least-recently-used entry once the in-memory tier is at capacity.
func (c *ExtractionCache) Put(lang, contentHash string, f *File) {
	if c == nil {
		return
	}
	key := cacheKey(lang, contentHash)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.insert(key, f)
}

func (c *ExtractionCache) insert(key string, f *File) {
	if _, exists := c.mem[key]; exists {
		c.touch(key)
		c.mem[key] = f
		return
	}
	c.mem[key] = f
	c.order = append(c.order, key)
	if len(c.order) <= c.capacity {
		return
	}
	evictKey := c.order[0]
	c.order = c.order[1:]
	evicted := c.mem[evictKey]
	delete(c.mem, evictKey)
	c.spill(evictKey, evicted)
}

func (c *ExtractionCache) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

func (c *ExtractionCache) spill(key string, f *File) {
	data, err := encodeFile(f)
	if err != nil {
		return
	}
	_ = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(key), data)
	})
}

func encodeFile(f *File) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeFile(data []byte) (*File, error) {
	var f File
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}
