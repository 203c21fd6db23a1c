// Package asset embeds the sample tracks shipped with the binaries
package asset

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed tracks/*.toml
var tracks embed.FS

// DefaultTrack is loaded when no track is named
const DefaultTrack = "oval"

// Track returns the TOML level document of an embedded track
func Track(name string) ([]byte, error) {
	data, err := tracks.ReadFile(path.Join("tracks", name+".toml"))
	if err != nil {
		return nil, fmt.Errorf("unknown track %q (have %s)", name, strings.Join(Tracks(), ", "))
	}
	return data, nil
}

// Tracks lists embedded track names, sorted
func Tracks() []string {
	entries, _ := fs.ReadDir(tracks, "tracks")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	sort.Strings(names)
	return names
}
