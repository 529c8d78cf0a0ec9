// Package catalog maps stable track identifiers to playable audio assets.
package catalog

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Collection tags the source table a track came from.
type Collection string

const (
	Music  Collection = "MUSIC"
	Speech Collection = "SPEECH"
)

// Asset is one row of a static manifest: the manifest name the track is
// known by and the file it is stored in, relative to the collection dir.
type Asset struct {
	Name string
	File string
}

// Table is a static manifest for one collection.
type Table struct {
	Collection Collection
	Dir        string
	Assets     []Asset
}

// Source is an opaque handle to a playable asset. Length is measured once
// when the catalog is built; zero means unknown.
type Source struct {
	FileName string
	Path     string
	Length   time.Duration
}

// Entry is a catalog row. Built once, never mutated.
type Entry struct {
	TrackID    string
	Collection Collection
	Source     Source
}

// Collision records a track id registered twice; the later entry wins.
type Collision struct {
	TrackID  string
	Shadowed string
	Winner   string
}

var (
	outputSuffix = regexp.MustCompile(` - Output - Stereo Out\.(m4a|aac)$`)
	alarmPrefix  = regexp.MustCompile(`(?i)^alarm\d+`)
)

// Normalize derives a track id from a raw manifest file name.
//
//	Normalize("alarm5pete - Output - Stereo Out.m4a") == "Pete"
func Normalize(raw string) string {
	name := outputSuffix.ReplaceAllString(raw, "")
	name = alarmPrefix.ReplaceAllString(name, "")
	name, _, _ = strings.Cut(name, "-")
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
}

// Catalog is an immutable registry of audio entries.
type Catalog struct {
	entries    map[string]Entry
	order      []string
	collisions []Collision
}

// New builds a catalog from tables in registration order. Asset paths are
// resolved under assetDir and each asset's length is probed once.
func New(assetDir string, tables ...Table) *Catalog {
	c := &Catalog{entries: make(map[string]Entry)}
	for _, t := range tables {
		for _, a := range t.Assets {
			id := Normalize(a.Name)
			if id == "" {
				continue
			}
			path := filepath.Join(assetDir, t.Dir, a.File)
			e := Entry{
				TrackID:    id,
				Collection: t.Collection,
				Source: Source{
					FileName: a.Name,
					Path:     path,
					Length:   measure(path),
				},
			}
			if prev, ok := c.entries[id]; ok {
				c.collisions = append(c.collisions, Collision{
					TrackID:  id,
					Shadowed: prev.Source.FileName,
					Winner:   a.Name,
				})
			} else {
				c.order = append(c.order, id)
			}
			c.entries[id] = e
		}
	}
	return c
}

// Default builds the catalog from the bundled manifests. Speech tracks are
// registered before music, so music wins a name clash.
func Default(assetDir string) *Catalog {
	return New(assetDir, SpeechTable, MusicTable)
}

// ResolveSource returns the playable source for a track id.
func (c *Catalog) ResolveSource(trackID string) (Source, bool) {
	e, ok := c.entries[trackID]
	return e.Source, ok
}

// ResolveCollection returns the collection a track id belongs to.
func (c *Catalog) ResolveCollection(trackID string) (Collection, bool) {
	e, ok := c.entries[trackID]
	return e.Collection, ok
}

// Entries returns every entry in first-registration order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// Collection returns the entries tagged with col.
func (c *Catalog) Collection(col Collection) []Entry {
	var out []Entry
	for _, id := range c.order {
		if e := c.entries[id]; e.Collection == col {
			out = append(out, e)
		}
	}
	return out
}

// TrackIDs returns every track id in first-registration order.
func (c *Catalog) TrackIDs() []string {
	return append([]string(nil), c.order...)
}

// Collisions reports ids that were registered more than once.
func (c *Catalog) Collisions() []Collision {
	return append([]Collision(nil), c.collisions...)
}

// Len returns the number of distinct track ids.
func (c *Catalog) Len() int {
	return len(c.order)
}
