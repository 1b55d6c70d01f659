// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatrevamp-tui/internal/theme"
)

// Theme holds all the styled components for the application.
type Theme struct {
	Mode   theme.Mode
	IsDark bool
	// Palette is the source of every color below.
	Palette theme.Palette

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// TAB STYLES
	// ==========================================================================

	TabBar      lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	// ==========================================================================
	// LIST STYLES
	// ==========================================================================

	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListName         lipgloss.Style
	ListPreview      lipgloss.Style
	ListTime         lipgloss.Style
	UnreadBadge      lipgloss.Style
	Separator        lipgloss.Style
	Avatar           lipgloss.Style

	// ==========================================================================
	// PRESENCE STYLES
	// ==========================================================================

	Online  lipgloss.Style
	Offline lipgloss.Style
	Away    lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	OwnBubble    lipgloss.Style
	OtherBubble  lipgloss.Style
	BubbleMeta   lipgloss.Style
	SenderName   lipgloss.Style
	DaySeparator lipgloss.Style

	// ==========================================================================
	// INPUT AND FORM STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputFocused     lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style
	FieldLabel       lipgloss.Style
	FieldError       lipgloss.Style
	Button           lipgloss.Style
	ButtonActive     lipgloss.Style
	Link             lipgloss.Style

	// ==========================================================================
	// MODAL STYLES
	// ==========================================================================

	Modal           lipgloss.Style
	ModalTitle      lipgloss.Style
	Option          lipgloss.Style
	OptionSelected  lipgloss.Style
	OptionDesc      lipgloss.Style
	OptionCheckmark lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
	Spinner      lipgloss.Style

	// ==========================================================================
	// FEEDBACK STYLES
	// ==========================================================================

	ErrorBox    lipgloss.Style
	ErrorText   lipgloss.Style
	Muted       lipgloss.Style
	SuccessText lipgloss.Style
}

// New builds a theme from a resolved snapshot.
func New(snap theme.Snapshot) *Theme {
	t := &Theme{
		Mode:    snap.Mode,
		IsDark:  snap.IsDark,
		Palette: snap.Palette,
	}
	t.initStyles()
	return t
}

// Default is the light system theme, for use before the controller has
// initialized.
func Default() *Theme {
	return New(theme.Snapshot{Mode: theme.ModeSystem, Palette: theme.PaletteFor(false)})
}

// C converts a palette color to a Lip Gloss color.
func C(c theme.Color) lipgloss.Color {
	return lipgloss.Color(string(c))
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	p := t.Palette

	// App container
	t.App = lipgloss.NewStyle().
		Foreground(C(p.Text))
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	// Header
	t.Header = lipgloss.NewStyle().
		Foreground(C(p.Text)).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(C(p.Border)).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(C(p.Text))

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(C(p.TextSecondary))

	// Tabs
	t.TabBar = lipgloss.NewStyle().
		Padding(0, 1)

	t.TabActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(C(p.TabActive)).
		BorderStyle(lipgloss.ThickBorder()).
		BorderBottom(true).
		BorderForeground(C(p.TabActive)).
		Padding(0, 1)

	t.TabInactive = lipgloss.NewStyle().
		Foreground(C(p.TabInactive)).
		BorderStyle(lipgloss.HiddenBorder()).
		BorderBottom(true).
		Padding(0, 1)

	// Lists
	t.ListItem = lipgloss.NewStyle().
		Padding(0, 1)

	t.ListItemSelected = lipgloss.NewStyle().
		Padding(0, 1).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(C(p.Primary))

	t.ListName = lipgloss.NewStyle().
		Bold(true).
		Foreground(C(p.Text))

	t.ListPreview = lipgloss.NewStyle().
		Foreground(C(p.TextSecondary))

	t.ListTime = lipgloss.NewStyle().
		Foreground(C(p.TextTertiary))

	t.UnreadBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(C(p.Background)).
		Background(C(p.Primary)).
		Padding(0, 1)

	t.Separator = lipgloss.NewStyle().
		Foreground(C(p.Separator))

	t.Avatar = lipgloss.NewStyle().
		Bold(true).
		Foreground(C(p.PrimaryDark)).
		Background(C(p.SurfaceSecondary)).
		Padding(0, 1)

	// Presence
	t.Online = lipgloss.NewStyle().Foreground(C(p.Online))
	t.Offline = lipgloss.NewStyle().Foreground(C(p.Offline))
	t.Away = lipgloss.NewStyle().Foreground(C(p.Away))

	// Message bubbles
	t.OwnBubble = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(C(p.Primary)).
		Padding(0, 1).
		MarginLeft(4)

	t.OtherBubble = lipgloss.NewStyle().
		Foreground(C(p.Text)).
		Background(C(p.SurfaceSecondary)).
		Padding(0, 1).
		MarginRight(4)

	t.BubbleMeta = lipgloss.NewStyle().
		Foreground(C(p.TextTertiary))

	t.SenderName = lipgloss.NewStyle().
		Bold(true).
		Foreground(C(p.PrimaryDark))

	t.DaySeparator = lipgloss.NewStyle().
		Foreground(C(p.TextTertiary)).
		Align(lipgloss.Center)

	// Inputs and forms
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(C(p.Border)).
		Padding(0, 1)

	t.InputFocused = t.InputContainer.
		BorderForeground(C(p.Primary))

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(C(p.Primary)).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(C(p.TextTertiary))

	t.FieldLabel = lipgloss.NewStyle().
		Foreground(C(p.TextSecondary))

	t.FieldError = lipgloss.NewStyle().
		Foreground(C(p.Error))

	t.Button = lipgloss.NewStyle().
		Foreground(C(p.Primary)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(C(p.Primary)).
		Padding(0, 2)

	t.ButtonActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(C(p.Primary)).
		Padding(0, 2).
		Margin(1, 0, 0, 0)

	t.Link = lipgloss.NewStyle().
		Foreground(C(p.Primary)).
		Underline(true)

	// Modals
	t.Modal = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(C(p.Border)).
		Background(C(p.Surface)).
		Padding(1, 2)

	t.ModalTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(C(p.Text)).
		MarginBottom(1)

	t.Option = lipgloss.NewStyle().
		Foreground(C(p.Text)).
		Padding(0, 1)

	t.OptionSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(C(p.Primary)).
		Background(C(p.SurfaceSecondary)).
		Padding(0, 1)

	t.OptionDesc = lipgloss.NewStyle().
		Foreground(C(p.TextSecondary)).
		PaddingLeft(3)

	t.OptionCheckmark = lipgloss.NewStyle().
		Bold(true).
		Foreground(C(p.Primary))

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(C(p.TextSecondary)).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(C(p.Border)).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(C(p.Primary))

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(C(p.TextTertiary))

	t.Spinner = lipgloss.NewStyle().
		Foreground(C(p.Primary))

	// Feedback
	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(C(p.Error)).
		Foreground(C(p.Error)).
		Padding(0, 1)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(C(p.Error))

	t.Muted = lipgloss.NewStyle().
		Foreground(C(p.TextTertiary))

	t.SuccessText = lipgloss.NewStyle().
		Foreground(C(p.Online))
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
