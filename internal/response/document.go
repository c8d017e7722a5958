// Package response extracts rows, counts and paging links from JSON response
// documents and maps remote rows onto attribute aliases.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Parse decodes a JSON response body. Numbers are kept as json.Number so
// that large integers and decimals survive until they are decoded by type.
func Parse(body []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse response body: %w", err)
	}
	return doc, nil
}

// segment is one step of a compiled path.
type segment struct {
	name string
	// bracket is set for segments written as [name].
	bracket bool
}

// compiledPath is a parsed lookup path.
type compiledPath struct {
	raw      string
	segments []segment
}

// compilePath splits a path like "d.results" or "data[items][0]" into its
// segments.
func compilePath(path string) compiledPath {
	cp := compiledPath{raw: path}
	var cur strings.Builder
	flush := func(bracket bool) {
		if cur.Len() > 0 || bracket {
			cp.segments = append(cp.segments, segment{name: cur.String(), bracket: bracket})
		}
		cur.Reset()
	}

	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush(false)
		case '[':
			flush(false)
			end := strings.IndexByte(path[i+1:], ']')
			if end < 0 {
				cur.WriteString(path[i:])
				i = len(path)
				continue
			}
			cur.WriteString(path[i+1 : i+1+end])
			flush(true)
			i += end + 1
		default:
			cur.WriteByte(c)
		}
	}
	flush(false)
	return cp
}

// pathCache is a bounded cache of compiled paths keyed by the xxhash of the
// raw path. When full it is cleared and refilled.
type pathCache struct {
	mu    sync.RWMutex
	items map[uint64]compiledPath
	max   int
}

var globalPathCache = &pathCache{
	items: make(map[uint64]compiledPath, 128),
	max:   128,
}

func (c *pathCache) get(path string) compiledPath {
	key := xxhash.Sum64String(path)
	c.mu.RLock()
	cp, ok := c.items[key]
	c.mu.RUnlock()
	if ok && cp.raw == path {
		return cp
	}

	cp = compilePath(path)
	c.mu.Lock()
	if len(c.items) >= c.max {
		c.items = make(map[uint64]compiledPath, c.max)
	}
	c.items[key] = cp
	c.mu.Unlock()
	return cp
}

// Lookup resolves a dotted or bracket path inside doc. At every level a key
// matching the longest run of remaining dotted segments wins, so
// "@odata.count" finds the annotation rather than an "@odata" object. An
// empty path returns doc itself.
func Lookup(doc interface{}, path string) (interface{}, bool) {
	if path == "" {
		return doc, true
	}
	return lookup(doc, globalPathCache.get(path).segments)
}

func lookup(node interface{}, segs []segment) (interface{}, bool) {
	if len(segs) == 0 {
		return node, true
	}

	switch n := node.(type) {
	case map[string]interface{}:
		for count := dottedRun(segs); count >= 1; count-- {
			v, ok := n[joinSegments(segs[:count])]
			if !ok {
				continue
			}
			if found, ok := lookup(v, segs[count:]); ok {
				return found, true
			}
		}
	case []interface{}:
		idx, err := strconv.Atoi(segs[0].name)
		if err != nil || idx < 0 || idx >= len(n) {
			return nil, false
		}
		return lookup(n[idx], segs[1:])
	}
	return nil, false
}

// dottedRun counts the leading segments that may be joined into one key.
func dottedRun(segs []segment) int {
	if segs[0].bracket {
		return 1
	}
	n := 1
	for n < len(segs) && !segs[n].bracket {
		n++
	}
	return n
}

func joinSegments(segs []segment) string {
	if len(segs) == 1 {
		return segs[0].name
	}
	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = s.name
	}
	return strings.Join(names, ".")
}
