// Package templates maps template identifiers to render compositions.
// Resolution always succeeds: unknown or empty identifiers fall back to the
// default template for the production type, so rendering never blocks on a
// stale template reference.
package templates

import "greenlight/internal/production"

// Template binds a template identifier to a render composition, its engine
// defaults, and its baseline properties.
type Template struct {
	ID                    string
	DisplayName           string
	VideoType             production.VideoType
	SupportedVideoTypes   []production.VideoType
	CompositionID         string
	DefaultDurationFrames int
	DefaultResolution     string
	Status                string
	DefaultProps          map[string]any
}

// StatusActive marks a template available for new renders.
const StatusActive = "active"

var registry = map[string]Template{
	"socle-standard": {
		ID:                    "socle-standard",
		DisplayName:           "Socle Standard",
		VideoType:             production.TypeFilmSocle,
		SupportedVideoTypes:   []production.VideoType{production.TypeFilmSocle},
		CompositionID:         "SocleMain",
		DefaultDurationFrames: 6000,
		DefaultResolution:     "1920x1080",
		Status:                StatusActive,
		DefaultProps:          map[string]any{"theme": "editorial", "aspectRatio": "16:9"},
	},
	"gamme-standard": {
		ID:                    "gamme-standard",
		DisplayName:           "Gamme Standard",
		VideoType:             production.TypeFilmGamme,
		SupportedVideoTypes:   []production.VideoType{production.TypeFilmGamme},
		CompositionID:         "GammeMain",
		DefaultDurationFrames: 3750,
		DefaultResolution:     "1920x1080",
		Status:                StatusActive,
		DefaultProps:          map[string]any{"theme": "catalog", "aspectRatio": "16:9"},
	},
	"short-vertical": {
		ID:                    "short-vertical",
		DisplayName:           "Short Vertical",
		VideoType:             production.TypeShort,
		SupportedVideoTypes:   []production.VideoType{production.TypeShort},
		CompositionID:         "ShortVertical",
		DefaultDurationFrames: 900,
		DefaultResolution:     "1080x1920",
		Status:                StatusActive,
		DefaultProps:          map[string]any{"theme": "dynamic", "aspectRatio": "9:16"},
	},
}

var defaultByType = map[production.VideoType]string{
	production.TypeFilmSocle: "socle-standard",
	production.TypeFilmGamme: "gamme-standard",
	production.TypeShort:     "short-vertical",
}

// Resolve returns the template for the given identifier, falling back to the
// default template for the production type when the identifier is empty or
// unknown. The boolean reports whether the fallback was taken.
func Resolve(templateID string, videoType production.VideoType) (Template, bool) {
	if templateID != "" {
		if template, ok := registry[templateID]; ok {
			return template, false
		}
	}
	return DefaultForType(videoType), templateID != ""
}

// DefaultForType returns the built-in default template for a production type.
// Unknown types resolve to the short template; it is the least constrained.
func DefaultForType(videoType production.VideoType) Template {
	id, ok := defaultByType[videoType]
	if !ok {
		id = defaultByType[production.TypeShort]
	}
	return registry[id]
}

// Props merges the template defaults with production-specific values. The
// production values win on key collision.
func (t Template) Props(p *production.VideoProduction) map[string]any {
	props := make(map[string]any, len(t.DefaultProps)+6)
	for key, value := range t.DefaultProps {
		props[key] = value
	}
	if t.DefaultDurationFrames > 0 {
		props["durationFrames"] = t.DefaultDurationFrames
	}
	if t.DefaultResolution != "" {
		props["resolution"] = t.DefaultResolution
	}
	props["briefId"] = p.BriefID
	props["title"] = p.Title
	props["vertical"] = p.Vertical
	props["scriptText"] = p.ScriptText
	if p.GammeAlias != "" {
		props["gammeAlias"] = p.GammeAlias
	}
	return props
}

// Known lists registered template identifiers, for CLI diagnostics.
func Known() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	return ids
}
