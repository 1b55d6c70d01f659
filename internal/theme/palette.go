// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package theme

// Color is a #RRGGBB hex string.
type Color string

// Palette maps every color role used by the UI to a concrete color.
type Palette struct {
	Background       Color
	Surface          Color
	SurfaceSecondary Color

	Text          Color
	TextSecondary Color
	TextTertiary  Color

	Primary      Color
	PrimaryLight Color
	PrimaryDark  Color

	Online  Color
	Offline Color
	Away    Color
	Error   Color

	Border    Color
	Separator Color

	TabActive     Color
	TabInactive   Color
	TabBackground Color
}

const (
	chatPrimary      Color = "#007AFF"
	chatPrimaryLight Color = "#4DA3FF"
	chatPrimaryDark  Color = "#0056CC"
)

var lightPalette = Palette{
	Background:       "#FFFFFF",
	Surface:          "#F8F9FA",
	SurfaceSecondary: "#F1F3F4",

	Text:          "#1C1C1E",
	TextSecondary: "#6C6C70",
	TextTertiary:  "#8E8E93",

	Primary:      chatPrimary,
	PrimaryLight: chatPrimaryLight,
	PrimaryDark:  chatPrimaryDark,

	Online:  "#34C759",
	Offline: "#8E8E93",
	Away:    "#FF9500",
	Error:   "#FF3B30",

	Border:    "#E5E5EA",
	Separator: "#F1F1F1",

	TabActive:     chatPrimary,
	TabInactive:   "#8E8E93",
	TabBackground: "#FFFFFF",
}

var darkPalette = Palette{
	Background:       "#000000",
	Surface:          "#1C1C1E",
	SurfaceSecondary: "#2C2C2E",

	Text:          "#FFFFFF",
	TextSecondary: "#AEAEB2",
	TextTertiary:  "#8E8E93",

	Primary:      chatPrimary,
	PrimaryLight: chatPrimaryLight,
	PrimaryDark:  chatPrimaryDark,

	Online:  "#30D158",
	Offline: "#8E8E93",
	Away:    "#FF9F0A",
	Error:   "#FF453A",

	Border:    "#38383A",
	Separator: "#2C2C2E",

	TabActive:     chatPrimary,
	TabInactive:   "#8E8E93",
	TabBackground: "#1C1C1E",
}

// PaletteFor returns the static palette for the rendered scheme.
func PaletteFor(isDark bool) Palette {
	if isDark {
		return darkPalette
	}
	return lightPalette
}
