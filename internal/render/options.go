package render

import (
	"sort"
	"strings"

	"github.com/livedoc-dev/livedoc/internal/errors"
)

// RuntimeMode tells the compiler how it is being embedded.
type RuntimeMode string

const (
	// RuntimeStatic renders the document as a standalone artifact.
	RuntimeStatic RuntimeMode = "static"

	// RuntimeReactive tells the compiler it is embedded in a live
	// session, which affects how reactive expressions in the source
	// are resolved.
	RuntimeReactive RuntimeMode = "reactive"
)

// Reserved option keys that control correctness. User options may only
// extend the option set, never override these.
const (
	optOutput        = "output"
	optSelfContained = "self-contained"
	optRuntime       = "runtime"
)

var reservedKeys = map[string]bool{
	optOutput:        true,
	optSelfContained: true,
	optRuntime:       true,
}

// Options carries the user-controllable part of a render invocation.
// The output path, self-contained flag, and runtime mode are owned by
// the invoker and cannot appear here.
type Options struct {
	// SatisfiedDeps enumerates dependency identifiers the hosting
	// session server already serves, so the compiler suppresses
	// duplicate asset emission.
	SatisfiedDeps []string

	// Extra is a pass-through bag of user options handed to the
	// compiler verbatim. Keys colliding with reserved options are
	// rejected by Validate.
	Extra map[string]string
}

// Validate rejects option sets that collide with invoker-reserved keys.
func (o Options) Validate() error {
	var bad []string
	for k := range o.Extra {
		if reservedKeys[k] {
			bad = append(bad, k)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return errors.New(errors.CodeConfigInvalid).
		WithDetail("reserved render option(s) supplied: " + strings.Join(bad, ", "))
}

// extraKeys returns the Extra keys in deterministic order.
func (o Options) extraKeys() []string {
	keys := make([]string, 0, len(o.Extra))
	for k := range o.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
