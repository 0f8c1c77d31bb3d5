// Package methodology holds the static vendor/scenario knowledge base that
// grounds every generated analysis, and the selection algorithm that turns a
// user's methodology picks into a single bounded reference-text block.
//
// The corpus is embedded at build time and immutable for the process
// lifetime; concurrent reads need no locking.
package methodology

import (
	"fmt"
	"strings"
	"sync"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/blueprintmaster/blueprint/internal/compress"
)

//go:embed methodologies.yaml
var corpus []byte

// SelectionBudget is the fixed character budget applied to the assembled
// methodology text before it is handed to the prompt builders.
const SelectionBudget = 8000

// fallbackScenario is included from every vendor when the caller selected
// nothing and supplied no custom items.
const fallbackScenario = "strategy"

const customHeading = "\n### 【部门默认参考书籍/理论】\n"

// Scenario is one pre-authored block of reference text.
type Scenario struct {
	Key         string `yaml:"key"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// Vendor groups the scenarios of one methodology source.
type Vendor struct {
	Key       string     `yaml:"key"`
	Label     string     `yaml:"label"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// Library is the loaded, immutable knowledge base.
type Library struct {
	vendors     []Vendor
	byVendor    map[string]int
	byComposite map[string]*Scenario
}

type corpusDoc struct {
	Vendors []Vendor `yaml:"vendors"`
}

// Load parses the embedded corpus into a Library.
func Load() (*Library, error) {
	var doc corpusDoc
	if err := yaml.Unmarshal(corpus, &doc); err != nil {
		return nil, fmt.Errorf("methodology: failed to parse corpus: %w", err)
	}
	if len(doc.Vendors) == 0 {
		return nil, fmt.Errorf("methodology: corpus contains no vendors")
	}

	lib := &Library{
		vendors:     doc.Vendors,
		byVendor:    make(map[string]int, len(doc.Vendors)),
		byComposite: make(map[string]*Scenario),
	}
	for i := range lib.vendors {
		v := &lib.vendors[i]
		lib.byVendor[v.Key] = i
		for j := range v.Scenarios {
			lib.byComposite[v.Key+":"+v.Scenarios[j].Key] = &v.Scenarios[j]
		}
	}
	return lib, nil
}

var (
	defaultLib  *Library
	defaultOnce sync.Once
)

// Default returns the process-wide library loaded from the embedded corpus.
// The embedded corpus is validated by tests; a parse failure here is a
// build defect and panics.
func Default() *Library {
	defaultOnce.Do(func() {
		lib, err := Load()
		if err != nil {
			panic(err)
		}
		defaultLib = lib
	})
	return defaultLib
}

// Vendors returns the vendors in corpus order.
func (l *Library) Vendors() []Vendor {
	return l.vendors
}

// Resolve assembles the reference text for a selection.
//
// Keys of the form "vendor:scenario" contribute that scenario under a
// labeled heading; bare vendor keys contribute every scenario of the vendor.
// Unresolved keys are skipped silently: an unknown methodology reference
// must never fail the request. When nothing resolved and no custom items
// were supplied, the strategy scenario of every vendor is included instead.
// Custom free-text items always come last, so under budget pressure the
// verbose built-in text is truncated before the sparse custom bullets are
// assembled away.
//
// The result is compressed to SelectionBudget characters.
func (l *Library) Resolve(selected, custom []string) string {
	var b strings.Builder

	for _, item := range selected {
		vendorKey, scenarioKey, composite := strings.Cut(item, ":")
		if composite {
			s, ok := l.byComposite[vendorKey+":"+scenarioKey]
			if !ok {
				continue
			}
			idx, ok := l.byVendor[vendorKey]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "\n### 【%s - %s】\n%s\n", l.vendors[idx].Label, s.Label, s.Content)
			continue
		}
		idx, ok := l.byVendor[vendorKey]
		if !ok {
			continue
		}
		v := l.vendors[idx]
		fmt.Fprintf(&b, "\n### 【%s (全场景)】\n", v.Label)
		for _, s := range v.Scenarios {
			fmt.Fprintf(&b, "%s\n", s.Content)
		}
	}

	if b.Len() == 0 && len(custom) == 0 {
		for _, v := range l.vendors {
			s, ok := l.byComposite[v.Key+":"+fallbackScenario]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "\n### 【%s - %s】\n%s\n", v.Label, s.Label, s.Content)
		}
	}

	if len(custom) > 0 {
		b.WriteString(customHeading)
		for _, item := range custom {
			if s := strings.TrimSpace(item); s != "" {
				fmt.Fprintf(&b, "*   📖 **%s**\n", s)
			}
		}
	}

	return compress.Methodology(b.String(), SelectionBudget)
}
