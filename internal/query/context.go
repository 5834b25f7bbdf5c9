// Package query answers ad-hoc questions from the query channel using a
// point-in-time snapshot of portfolio state. Sections degrade independently:
// whatever fetches succeeded make it into the context, the rest is omitted.
package query

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"clawrelay/internal/pkg/jsonutil"
	"clawrelay/internal/pkg/text"
)

const (
	maxPositionsShown = 5
	maxDecisionsShown = 3
	// decisionsFetchLimit is what we ask upstream for; only the newest
	// maxDecisionsShown are rendered.
	decisionsFetchLimit = 5

	contextLimit     = 3500
	rawFallbackLimit = 1500
)

// Snapshot holds whatever portfolio data the three fetches produced. A nil
// field means that fetch failed and its section is dropped.
type Snapshot struct {
	Portfolio json.RawMessage
	Positions json.RawMessage
	Decisions json.RawMessage
}

// Empty reports whether nothing at all was fetched.
func (s Snapshot) Empty() bool {
	return len(s.Portfolio) == 0 && len(s.Positions) == 0 && len(s.Decisions) == 0
}

// BuildContext renders the snapshot into the bounded document fed to the
// generative answerer.
func BuildContext(snap Snapshot) string {
	var b strings.Builder
	b.WriteString("TRADING SYSTEM DATA:\n\n")

	if len(snap.Portfolio) > 0 {
		p := gjson.ParseBytes(snap.Portfolio)
		maxPos := p.Get("max_positions").Int()
		if maxPos == 0 {
			maxPos = 5
		}
		b.WriteString(fmt.Sprintf("Portfolio: %d/%d positions | ", p.Get("open_count").Int(), maxPos))
		b.WriteString(fmt.Sprintf("Invested: $%s | ", money(p.Get("total_invested"))))
		b.WriteString(fmt.Sprintf("Available: $%s | ", money(p.Get("available_capital"))))
		b.WriteString(fmt.Sprintf("Unrealized: $%s (%.1f%%) | ", money(p.Get("unrealized_pnl")), p.Get("unrealized_pnl_percent").Float()))
		b.WriteString(fmt.Sprintf("Realized: $%s | ", money(p.Get("realized_pnl"))))
		b.WriteString(fmt.Sprintf("Win rate: %.1f%% (%d trades)\n\n", p.Get("win_rate").Float(), p.Get("total_trades").Int()))
	}

	if positions := gjson.ParseBytes(snap.Positions).Array(); len(positions) > 0 {
		b.WriteString("Open positions:\n")
		for i, pos := range positions {
			if i >= maxPositionsShown {
				break
			}
			sym := stringOr(pos.Get("symbol"), "?")
			entry := pos.Get("avg_entry_price")
			live := pos.Get("live_price")
			if !live.Exists() || live.Float() == 0 {
				live = pos.Get("current_price")
			}
			b.WriteString(fmt.Sprintf("  %s: entry $%s, now $%s (%+.1f%%)\n",
				sym, money(entry), money(live), pos.Get("live_pnl_percent").Float()))
		}
		b.WriteString("\n")
	}

	if decisions := gjson.ParseBytes(snap.Decisions).Array(); len(decisions) > 0 {
		b.WriteString("Recent decisions:\n")
		for i, d := range decisions {
			if i >= maxDecisionsShown {
				break
			}
			b.WriteString(fmt.Sprintf("  %s: %s conf:%s | %s\n",
				stringOr(d.Get("symbol"), "?"),
				stringOr(d.Get("action"), "?"),
				stringOr(d.Get("confidence"), "?"),
				text.Head(d.Get("reasoning").String(), 120)))
		}
		b.WriteString("\n")
	}

	return text.Clamp(b.String(), contextLimit)
}

// RawFallback renders the portfolio payload directly, for when the
// generative tier is down. Empty when the portfolio fetch failed too.
func RawFallback(snap Snapshot) string {
	if len(snap.Portfolio) == 0 {
		return ""
	}
	dump := text.Head(jsonutil.Pretty(string(snap.Portfolio)), rawFallbackLimit)
	return "**Portfolio:**\n```json\n" + dump + "\n```"
}

// money renders a JSON number with two decimals and no float artifacts.
func money(r gjson.Result) string {
	if !r.Exists() {
		return "0.00"
	}
	switch r.Type {
	case gjson.Number:
		return decimal.NewFromFloat(r.Float()).StringFixed(2)
	case gjson.String:
		if d, err := decimal.NewFromString(strings.TrimSpace(r.String())); err == nil {
			return d.StringFixed(2)
		}
		return "0.00"
	default:
		return "0.00"
	}
}

func stringOr(r gjson.Result, fallback string) string {
	s := strings.TrimSpace(r.String())
	if s == "" {
		return fallback
	}
	return s
}
