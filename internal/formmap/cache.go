package formmap

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/a3tai/form-copilot/internal/form"
)

// rendering is the model-independent part of an analysis
type rendering struct {
	imageData string
	// annotated is empty when the page has no fields
	annotated string
	fields    []form.Field
	pages     int
}

// renderCache is a thread-safe LRU of renderings keyed by the document's
// SHA-256
type renderCache struct {
	mutex    sync.Mutex
	capacity int
	items    map[string]*cacheNode
	head     *cacheNode // Most recently used
	tail     *cacheNode // Least recently used
	hits     int64
	misses   int64
}

type cacheNode struct {
	key   string
	value *rendering
	prev  *cacheNode
	next  *cacheNode
}

// CacheStats reports cache usage
type CacheStats struct {
	Hits     int64
	Misses   int64
	Size     int
	Capacity int
}

func newRenderCache(capacity int) *renderCache {
	c := &renderCache{
		capacity: capacity,
		items:    make(map[string]*cacheNode),
		head:     &cacheNode{},
		tail:     &cacheNode{},
	}

	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

func documentKey(document []byte) string {
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}

// get returns a copy of the cached rendering and marks it as recently used
func (c *renderCache) get(key string) (*rendering, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	node, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false
	}

	c.moveToFront(node)
	c.hits++
	return node.value.clone(), true
}

func (c *renderCache) put(key string, value *rendering) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, exists := c.items[key]; exists {
		node.value = value.clone()
		c.moveToFront(node)
		return
	}

	node := &cacheNode{key: key, value: value.clone()}
	c.addToFront(node)
	c.items[key] = node

	if len(c.items) > c.capacity {
		lru := c.tail.prev
		c.removeNode(lru)
		delete(c.items, lru.key)
	}
}

func (c *renderCache) stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return CacheStats{
		Hits:     c.hits,
		Misses:   c.misses,
		Size:     len(c.items),
		Capacity: c.capacity,
	}
}

func (c *renderCache) moveToFront(node *cacheNode) {
	c.removeNode(node)
	c.addToFront(node)
}

func (c *renderCache) addToFront(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *renderCache) removeNode(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}

// clone copies the field slice so label resolution never writes into a
// cached rendering
func (r *rendering) clone() *rendering {
	out := *r
	out.fields = append(r.fields[:0:0], r.fields...)
	return &out
}
