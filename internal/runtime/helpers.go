package runtime

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"github.com/l0p7/seometa/internal/runtime/generation"
)

// Query parameters selecting generation arguments. They carry an "arg_"
// prefix so they never collide with the page selection parameters.
const (
	argID          = "arg_id"
	argTaxonomy    = "arg_taxonomy"
	argCustomField = "arg_custom_field"
	argIsHome      = "arg_home"
	argSocial      = "arg_social"
	argNoTagline   = "arg_notagline"
	argMeta        = "arg_meta"
	argEscape      = "arg_escape"
	argPlaceholder = "arg_placeholder"
	argDescription = "arg_description"
)

// argsFromQuery reads generation.Args from values. Malformed values are
// rejected here; structurally odd but well-typed args (a taxonomy without an
// id) pass through so the builders can report and default them.
func argsFromQuery(values url.Values) (generation.Args, error) {
	var args generation.Args
	if raw := strings.TrimSpace(values.Get(argID)); raw != "" {
		id, err := cast.ToIntE(raw)
		if err != nil {
			return generation.Args{}, fmt.Errorf("invalid %s %q", argID, raw)
		}
		args.ID = id
	}
	args.Taxonomy = strings.TrimSpace(values.Get(argTaxonomy))

	flags := []struct {
		name string
		dst  *bool
	}{
		{argIsHome, &args.IsHome},
		{argSocial, &args.Social},
		{argNoTagline, &args.NoTagline},
		{argMeta, &args.Meta},
		{argPlaceholder, &args.Placeholder},
		{argDescription, &args.Description},
	}
	for _, f := range flags {
		v, set, err := boolQuery(values, f.name)
		if err != nil {
			return generation.Args{}, err
		}
		if set {
			*f.dst = v
		}
	}

	optional := []struct {
		name string
		dst  **bool
	}{
		{argCustomField, &args.UseCustomField},
		{argEscape, &args.Escape},
	}
	for _, f := range optional {
		v, set, err := boolQuery(values, f.name)
		if err != nil {
			return generation.Args{}, err
		}
		if set {
			*f.dst = generation.Bool(v)
		}
	}
	return args, nil
}

func boolQuery(values url.Values, name string) (bool, bool, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return false, false, nil
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, true, nil
}

func (g *Generator) requestCorrelationID(r *http.Request) string {
	if r != nil && g.correlationHeader != "" {
		if candidate := strings.TrimSpace(r.Header.Get(g.correlationHeader)); candidate != "" {
			return candidate
		}
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("%d", g.now().UnixNano())
}
