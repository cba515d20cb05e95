package templates_test

import (
	"testing"

	"greenlight/internal/production"
	"greenlight/internal/templates"
	"greenlight/internal/testsupport"
)

func TestResolveKnownTemplate(t *testing.T) {
	template, fellBack := templates.Resolve("short-vertical", production.TypeFilmSocle)
	if fellBack {
		t.Fatal("known template must not fall back")
	}
	if template.CompositionID != "ShortVertical" {
		t.Fatalf("unexpected composition: %s", template.CompositionID)
	}
}

func TestResolveUnknownFallsBackToTypeDefault(t *testing.T) {
	template, fellBack := templates.Resolve("retired-template", production.TypeFilmGamme)
	if !fellBack {
		t.Fatal("unknown template must report fallback")
	}
	if template.ID != "gamme-standard" {
		t.Fatalf("expected gamme default, got %s", template.ID)
	}

	template, fellBack = templates.Resolve("", production.TypeShort)
	if fellBack {
		t.Fatal("empty identifier is not a fallback, it is the default path")
	}
	if template.ID != "short-vertical" {
		t.Fatalf("expected short default, got %s", template.ID)
	}
}

func TestTemplatesCarryEngineDefaults(t *testing.T) {
	for _, id := range templates.Known() {
		template, fellBack := templates.Resolve(id, production.TypeShort)
		if fellBack {
			t.Fatalf("registered template %s must resolve directly", id)
		}
		if template.DisplayName == "" {
			t.Fatalf("template %s has no display name", id)
		}
		if template.Status != templates.StatusActive {
			t.Fatalf("template %s status %q, want %q", id, template.Status, templates.StatusActive)
		}
		if template.DefaultDurationFrames <= 0 {
			t.Fatalf("template %s has no default duration", id)
		}
		if template.DefaultResolution == "" {
			t.Fatalf("template %s has no default resolution", id)
		}
		supported := false
		for _, videoType := range template.SupportedVideoTypes {
			if videoType == template.VideoType {
				supported = true
			}
		}
		if !supported {
			t.Fatalf("template %s does not support its own video type %s", id, template.VideoType)
		}
	}
}

func TestTemplatePropsMergeProductionValues(t *testing.T) {
	master := testsupport.MasterFixture("BRF-400")
	master.GammeAlias = "freinage"

	template, _ := templates.Resolve("", master.VideoType)
	props := template.Props(master)

	if props["briefId"] != "BRF-400" {
		t.Fatalf("expected briefId prop, got %v", props["briefId"])
	}
	if props["theme"] != "editorial" {
		t.Fatalf("expected template default theme, got %v", props["theme"])
	}
	if props["gammeAlias"] != "freinage" {
		t.Fatalf("expected gamme alias prop, got %v", props["gammeAlias"])
	}
	if props["durationFrames"] != template.DefaultDurationFrames {
		t.Fatalf("expected engine default duration in props, got %v", props["durationFrames"])
	}
	if props["resolution"] != template.DefaultResolution {
		t.Fatalf("expected engine default resolution in props, got %v", props["resolution"])
	}
}
