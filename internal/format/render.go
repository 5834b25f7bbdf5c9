// Package format turns trading events into short chat messages. The
// deterministic renderer here is total: any event, any metadata shape,
// unknown types included, always yields a non-empty bounded string.
package format

import (
	"fmt"
	"strconv"

	"clawrelay/internal/dashboard"
	"clawrelay/internal/pkg/text"
)

// EventMessageLimit bounds every rendered event message.
const EventMessageLimit = 500

// Render maps an event to its display string via per-type templates.
func Render(ev dashboard.Event) string {
	meta := ev.Metadata
	var msg string
	switch ev.EventType {
	case "BUY":
		msg = fmt.Sprintf("🟢 **BUY** %s @ $%s | Conf: %s | %s",
			ev.Symbol, metaVal(meta, "price"), metaVal(meta, "confidence"),
			text.Head(metaVal(meta, "reasoning"), 100))
	case "SELL":
		msg = fmt.Sprintf("🔴 **SELL** %s @ $%s | P&L: $%s (%s%%)",
			ev.Symbol, metaVal(meta, "price"), metaVal(meta, "pnl"), metaVal(meta, "pnl_percent"))
	case "DCA":
		msg = fmt.Sprintf("🔵 **DCA** %s @ $%s | New avg: $%s",
			ev.Symbol, metaVal(meta, "price"), metaVal(meta, "new_avg_entry"))
	case "PARTIAL_EXIT":
		msg = fmt.Sprintf("💰 **PARTIAL EXIT** %s %s%% @ $%s | P&L: $%s",
			ev.Symbol, metaVal(meta, "exit_percent"), metaVal(meta, "price"), metaVal(meta, "pnl"))
	case "CIRCUIT_BREAKER":
		msg = fmt.Sprintf("⚠️ **CIRCUIT BREAKER** | %s losses | Pausing %sh",
			metaVal(meta, "consecutive_losses"), metaVal(meta, "cooldown_hours"))
	case "HOURLY_SUMMARY":
		msg = fmt.Sprintf("📊 **Hourly** | %d positions | P&L: $%.2f unrealized, $%.2f realized",
			metaInt(meta, "open_positions"), metaFloat(meta, "unrealized_pnl"), metaFloat(meta, "realized_pnl"))
	case "ENGINE_START":
		msg = fmt.Sprintf("🚀 **Engine Started** | %s symbols | $%s capital | Paper: %s",
			metaVal(meta, "symbols"), metaVal(meta, "capital"), metaVal(meta, "paper_trading"))
	case "ENGINE_STOP":
		msg = fmt.Sprintf("🛑 **Engine Stopped** | %s cycles completed",
			metaVal(meta, "cycle_count"))
	default:
		et := ev.EventType
		if et == "" {
			et = "UNKNOWN"
		}
		msg = fmt.Sprintf("📌 **%s** %s | %s", et, ev.Symbol, text.Head(ev.MetadataJSON(), 200))
	}
	return text.Clamp(msg, EventMessageLimit)
}

// metaVal renders one metadata value for display. Missing keys degrade to
// "?", JSON numbers drop their float artifacts ("65000", not "65000.000000").
func metaVal(meta map[string]any, key string) string {
	if meta == nil {
		return "?"
	}
	v, ok := meta[key]
	if !ok || v == nil {
		return "?"
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

func metaFloat(meta map[string]any, key string) float64 {
	if meta == nil {
		return 0
	}
	switch t := meta[key].(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}

func metaInt(meta map[string]any, key string) int {
	return int(metaFloat(meta, key))
}
