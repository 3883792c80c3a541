package view

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	tuitheme "github.com/glabrego/odyssey-reader/internal/tui/theme"
)

// Toolbar returns the key hints for a mode name as used by the model.
func Toolbar(mode string) string {
	switch mode {
	case "select":
		return "←/→ h/l extend | w/b shift | enter select | esc cancel"
	case "contents":
		return "j/k move | enter jump | space expand | esc close"
	case "settings":
		return "1 page prompt | 2 selection prompt | m call limit | K key | ctrl+k clear key | esc close"
	case "editor":
		return "ctrl+s save | ctrl+r reset to default | esc cancel"
	case "input":
		return "enter confirm | esc cancel"
	case "help":
		return "? or esc close | q quit"
	}
	return "←/→ page | g jump | v select | a analyze | s/d explain/define | i ask | c contents | o settings | ? help | q quit"
}

type FooterInput struct {
	BookTitle string
	Page      int
	Total     int
	Calls     int
	Quota     int
	Cost      float64
	NearLimit bool
	Theme     string
	FontSize  int
	Selection string
}

func Footer(in FooterInput, th tuitheme.Theme) string {
	usage := th.MetaValue.Render(fmt.Sprintf("%d/%d ($%.2f)", in.Calls, in.Quota, in.Cost))
	if in.NearLimit {
		usage = th.StateWarn.Render(fmt.Sprintf("%d/%d ($%.2f)", in.Calls, in.Quota, in.Cost))
	}
	parts := []string{
		th.MetaValue.Render(in.BookTitle),
		th.MetaLabel.Render("page") + " " + th.MetaValue.Render(fmt.Sprintf("%s/%s", humanize.Comma(int64(in.Page)), humanize.Comma(int64(in.Total)))),
		th.MetaLabel.Render("calls") + " " + usage,
		th.MetaLabel.Render("theme") + " " + th.MetaValue.Render(in.Theme),
		th.MetaLabel.Render("font") + " " + th.MetaValue.Render(fmt.Sprintf("%d", in.FontSize)),
	}
	if in.Selection != "" {
		parts = append(parts, th.MetaLabel.Render("selected")+" "+th.MetaValue.Render(fmt.Sprintf("%q", truncateRunes(in.Selection, 30))))
	}
	return strings.Join(parts, " • ")
}

func CompactMessage(loading bool, hasWarning bool, status, warning string, th tuitheme.Theme) string {
	state := "idle"
	if loading {
		state = "loading"
	}
	if hasWarning {
		state = "warning"
	}
	main := "Ready"
	if status != "" {
		main = status
	} else if hasWarning {
		main = warning
	}
	stateLabel := th.StateIdle.Render("state")
	switch state {
	case "warning":
		stateLabel = th.StateWarn.Render("state")
	case "loading":
		stateLabel = th.StateLoad.Render("state")
	}
	return fmt.Sprintf("%s: %s | %s", stateLabel, state, th.MetaValue.Render(main))
}
