// Package asset
package asset

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// Asset is a canonical asset identity with the alternate tickers some
// exchanges list it under. Immutable once constructed.
type Asset struct {
	Name    string
	Aliases []string
}

// New builds an asset. The canonical name is always a member of its own
// alias list.
func New(name string, aliases []string) *Asset {
	for _, a := range aliases {
		if a == name {
			return &Asset{Name: name, Aliases: aliases}
		}
	}
	return &Asset{Name: name, Aliases: append(aliases, name)}
}

//go:embed glossary.yaml
var glossaryYAML []byte

var (
	mu     sync.RWMutex
	assets = map[string]*Asset{}
)

func init() {
	var glossary map[string][]string
	if err := yaml.Unmarshal(glossaryYAML, &glossary); err != nil {
		panic(fmt.Sprintf("asset glossary: %v", err))
	}
	for name, aliases := range glossary {
		assets[name] = New(name, aliases)
	}
}

// Get returns the process-wide cached asset for name, creating one with a
// single-entry alias set on first lookup. Instances are shared and never
// evicted.
func Get(name string) *Asset {
	mu.RLock()
	a := assets[name]
	mu.RUnlock()
	if a != nil {
		return a
	}
	mu.Lock()
	defer mu.Unlock()
	if a := assets[name]; a != nil {
		return a
	}
	a = New(name, []string{name})
	assets[name] = a
	return a
}
