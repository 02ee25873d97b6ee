package usecase

import (
	"fmt"
	"strings"

	"TradeRelay/internal/domain/models"
)

// Outbound message templates. Presentation only: every template renders
// from the signal or a computed summary, never from intermediate engine
// state.

func withNA(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "null") || strings.EqualFold(v, "undefined") {
		return "N/A"
	}
	return v
}

func symbolLine(symbol, tf string) string {
	if tf != "" {
		return fmt.Sprintf("%s %sm", symbol, tf)
	}
	return symbol
}

func formatEntry(sig *models.Signal, symbolDisplay, displayTime string) string {
	action := "Buy"
	if sig.Type.Direction() == models.DirectionShort {
		action = "Sell"
	}
	return strings.Join([]string{
		fmt.Sprintf("**%s %s Now**", action, symbolDisplay),
		"Trade ID: " + sig.TradeID,
		symbolLine(sig.Symbol, sig.TF),
		"Time: " + displayTime,
		"Entry: " + withNA(sig.Entry),
		"SL: " + withNA(sig.SL),
		"TP1: " + withNA(sig.TP1),
		"TP2: " + withNA(sig.TP2),
	}, "\n")
}

func formatExit(sig *models.Signal, displayTime string) string {
	var title, flavor string
	switch {
	case sig.Type.IsPartialExit():
		title = "**Trade Update: TP1 HIT / BE**"
		flavor = "TP1 Smashed! 🔥 SL moved to entry. 50% Partials secured. 💰"
	case sig.Type.IsTargetHit():
		title = "**Trade Update: TP2 HIT**"
		flavor = "TP2 Smashed! 🔥🔥 Trade fully closed. 💰"
	default:
		title = "**Trade Update: SL HIT**"
		flavor = "Trade invalidated. 🛑"
	}
	return strings.Join([]string{
		title,
		"Trade ID: " + sig.TradeID,
		symbolLine(sig.Symbol, sig.TF),
		"Time: " + displayTime,
		"Price: " + withNA(sig.Price),
		flavor,
	}, "\n")
}

func formatBias(sig *models.Signal, displayTime string) string {
	title := "**Opening Bias 📊**"
	if sig.Type == models.SignalBiasFlip {
		title = "**Bias Flip ⚠️**"
	}
	return strings.Join([]string{
		title,
		symbolLine(sig.Symbol, sig.TF),
		"Time: " + displayTime,
		withNA(sig.Profile),
	}, "\n")
}

func formatForceCloseLine(t models.TradeSummary) string {
	return fmt.Sprintf("%s | %s %s | Entry: %g", t.ID, t.Direction, symbolLine(t.Symbol, t.TF), t.Entry)
}

const forceCloseHeader = "**Hard Stop - Market Close 🔔**\nActive trades will be closed at market close."

func formatSummary(sum *models.PerformanceSummary) string {
	lines := []string{
		fmt.Sprintf("**%s 📈**", sum.Label),
		fmt.Sprintf("Trades: %d | Wins: %d | Losses: %d", sum.Trades(), sum.Wins, sum.Losses),
		fmt.Sprintf("Net points: %+.2f", sum.Points),
	}
	for _, rec := range sum.Records {
		outcome := "❌"
		if rec.Win {
			outcome = "✅"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s → %+.2f pts",
			outcome, rec.TradeID, rec.Direction, string(rec.ExitType), rec.Points))
	}
	if sum.Trades() == 0 {
		lines = append(lines, "No closed trades in this period.")
	}
	return strings.Join(lines, "\n")
}

func formatUnknown(sig *models.Signal, rawType, displayTime string) string {
	return strings.Join([]string{
		"**⚠️ UNKNOWN ALERT TYPE**",
		"Type: " + withNA(rawType),
		"Trade ID: " + withNA(sig.TradeID),
		"Symbol: " + symbolLine(sig.Symbol, sig.TF),
		"Time: " + displayTime,
		"Please check indicator configuration.",
	}, "\n")
}
