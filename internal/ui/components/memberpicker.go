// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/jeranaias/chatrevamp-tui/internal/api"
	"github.com/jeranaias/chatrevamp-tui/internal/ui/styles"
	"github.com/jeranaias/chatrevamp-tui/internal/util"
)

// =============================================================================
// MEMBER PICKER
// =============================================================================

// MemberPicker lists roster members with search and multi-select.
type MemberPicker struct {
	all      []api.Member
	visible  []api.Member
	query    string
	cursor   int
	offset   int
	height   int
	width    int
	selected map[int64]api.Member
	order    []int64
}

// NewMemberPicker creates an empty picker.
func NewMemberPicker() *MemberPicker {
	return &MemberPicker{
		height:   10,
		width:    60,
		selected: make(map[int64]api.Member),
	}
}

// SetSize sets the area the list renders into.
func (p *MemberPicker) SetSize(width, height int) {
	p.width, p.height = width, height
	p.clamp()
}

// SetMembers replaces the roster. Selections of members still present are
// kept.
func (p *MemberPicker) SetMembers(members []api.Member) {
	p.all = members
	present := make(map[int64]bool, len(members))
	for _, m := range members {
		present[m.ID] = true
	}
	order := p.order[:0]
	for _, id := range p.order {
		if present[id] {
			order = append(order, id)
		} else {
			delete(p.selected, id)
		}
	}
	p.order = order
	p.apply()
}

// SetQuery filters by name or email, ignoring case.
func (p *MemberPicker) SetQuery(q string) {
	p.query = q
	p.cursor = 0
	p.apply()
}

// Query returns the current search text.
func (p *MemberPicker) Query() string { return p.query }

func (p *MemberPicker) apply() {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(p.query))
	p.visible = make([]api.Member, 0, len(p.all))
	for _, m := range p.all {
		if needle == "" ||
			strings.Contains(fold.String(m.Name), needle) ||
			strings.Contains(fold.String(m.Email), needle) {
			p.visible = append(p.visible, m)
		}
	}
	p.clamp()
}

// Visible returns the members passing the search.
func (p *MemberPicker) Visible() []api.Member { return p.visible }

// Move moves the cursor by delta rows.
func (p *MemberPicker) Move(delta int) {
	p.cursor += delta
	p.clamp()
}

// Current returns the member under the cursor.
func (p *MemberPicker) Current() (api.Member, bool) {
	if p.cursor < 0 || p.cursor >= len(p.visible) {
		return api.Member{}, false
	}
	return p.visible[p.cursor], true
}

// Toggle flips the selection of the member under the cursor.
func (p *MemberPicker) Toggle() {
	m, ok := p.Current()
	if !ok {
		return
	}
	if _, on := p.selected[m.ID]; on {
		delete(p.selected, m.ID)
		for i, id := range p.order {
			if id == m.ID {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
		return
	}
	p.selected[m.ID] = m
	p.order = append(p.order, m.ID)
}

// Selected returns the selected members in selection order.
func (p *MemberPicker) Selected() []api.Member {
	out := make([]api.Member, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.selected[id])
	}
	return out
}

// ClearSelection deselects everyone.
func (p *MemberPicker) ClearSelection() {
	p.selected = make(map[int64]api.Member)
	p.order = nil
}

func (p *MemberPicker) rows() int {
	if p.height < 1 {
		return 1
	}
	return p.height
}

func (p *MemberPicker) clamp() {
	if p.cursor >= len(p.visible) {
		p.cursor = len(p.visible) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+p.rows() {
		p.offset = p.cursor - p.rows() + 1
	}
	if p.offset < 0 {
		p.offset = 0
	}
}

// View renders the visible rows. online reports presence; it may be nil.
func (p *MemberPicker) View(t *styles.Theme, online func(id int64) bool) string {
	if len(p.visible) == 0 {
		if strings.TrimSpace(p.query) != "" {
			return t.Muted.Render("No members match \"" + p.query + "\"")
		}
		return t.Muted.Render("No members found")
	}

	ind := styles.Indicators
	end := p.offset + p.rows()
	if end > len(p.visible) {
		end = len(p.visible)
	}
	lines := make([]string, 0, end-p.offset)
	for i := p.offset; i < end; i++ {
		m := p.visible[i]
		check := "[ ]"
		if _, on := p.selected[m.ID]; on {
			check = t.OptionCheckmark.Render(ind.Checked)
		}
		dot := t.Offline.Render(ind.Offline)
		if online != nil && online(m.ID) {
			dot = t.Online.Render(ind.Online)
		}
		name := util.Truncate(m.Name, p.width/2)
		line := check + " " + dot + " " + t.ListName.Render(name)
		if m.Email != "" {
			line += "  " + t.ListPreview.Render(util.Truncate(m.Email, p.width/2-4))
		}
		if i == p.cursor {
			lines = append(lines, t.OptionSelected.Render(ind.Cursor+" "+line))
		} else {
			lines = append(lines, t.Option.Render("  "+line))
		}
	}
	return strings.Join(lines, "\n")
}
