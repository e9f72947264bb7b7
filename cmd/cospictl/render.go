package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

func printSuccess(msg string) { successColor.Println(msg) }
func printError(msg string)   { errorColor.Println(msg) }
func printWarn(msg string)    { warnColor.Println(msg) }
func printInfo(msg string)    { infoColor.Println(msg) }

var stdin = bufio.NewReader(os.Stdin)

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		line, err := stdin.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line, nil
		}
		printWarn(label + " is required.")
	}
}

func promptInt(label string, min, max int) (int, error) {
	for {
		raw, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(raw)
		if err == nil && v >= min && v <= max {
			return v, nil
		}
		printWarn(fmt.Sprintf("Enter a number between %d and %d.", min, max))
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	}
	return 0
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asList(out map[string]any, key string) []map[string]any {
	raw, _ := out[key].([]any)
	items := make([]map[string]any, 0, len(raw))
	for _, it := range raw {
		if m, ok := it.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

func formatAmount(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

func renderMe(out map[string]any) {
	user, _ := out["user"].(map[string]any)
	if user != nil {
		name, _ := user["name"].(string)
		company, _ := user["company"].(string)
		headerColor.Printf("%s", name)
		if company != "" {
			fmt.Printf("  (%s)", company)
		}
		fmt.Println()
	}
	fmt.Printf("  coin balance:  %s\n", formatAmount(asInt64(out["coin_balance"])))
	fmt.Printf("  stock balance: %s\n", formatAmount(asInt64(out["stock_balance"])))
}

func renderBooths(out map[string]any) {
	booths := asList(out, "booths")
	if len(booths) == 0 {
		printInfo("No booths yet.")
		return
	}
	zone := ""
	for _, b := range booths {
		z, _ := b["zone"].(string)
		if z != zone {
			zone = z
			headerColor.Printf("Zone %s\n", zone)
		}
		emoji, _ := b["logo_emoji"].(string)
		name, _ := b["name"].(string)
		category, _ := b["category"].(string)
		fmt.Printf("  [%d] %s %s (%s)\n", asInt64(b["id"]), emoji, name, category)
	}
}

func renderBoothDetail(b map[string]any) {
	emoji, _ := b["logo_emoji"].(string)
	name, _ := b["name"].(string)
	headerColor.Printf("%s %s\n", emoji, name)
	fmt.Printf("  id:       %d\n", asInt64(b["id"]))
	fmt.Printf("  zone:     %v\n", b["zone"])
	fmt.Printf("  category: %v\n", b["category"])
}

func renderReviews(out map[string]any) {
	reviews := asList(out, "reviews")
	if len(reviews) == 0 {
		printInfo("No reviews yet.")
		return
	}
	for _, r := range reviews {
		name, _ := r["user_name"].(string)
		text, _ := r["review"].(string)
		headerColor.Printf("%s: ", name)
		fmt.Println(text)
	}
}

func renderHoldings(out map[string]any, ledger string) {
	holdings := asList(out, "holdings")
	if len(holdings) == 0 {
		printInfo("No " + ledger + " holdings.")
		return
	}
	headerColor.Printf("%-4s %-24s %s\n", "ID", "BOOTH", "AMOUNT")
	for _, h := range holdings {
		name, _ := h["booth_name"].(string)
		fmt.Printf("%-4d %-24s %s\n", asInt64(h["booth_id"]), name, formatAmount(asInt64(h["amount"])))
	}
}

func renderHistory(out map[string]any, ledger string) {
	records := asList(out, "history")
	if len(records) == 0 {
		printInfo("No " + ledger + " history.")
		return
	}
	headerColor.Printf("%-12s %-24s %12s %14s\n", "KIND", "BOOTH", "AMOUNT", "BALANCE AFTER")
	for _, r := range records {
		kind, _ := r["kind"].(string)
		name, _ := r["booth_name"].(string)
		fmt.Printf("%-12s %-24s %12s %14s\n", kind, name,
			formatAmount(asInt64(r["amount"])), formatAmount(asInt64(r["balance_after"])))
	}
}

func renderCospi(out map[string]any) {
	total := asInt64(out["current_total"])
	change := asInt64(out["change"])
	rate := asFloat(out["change_rate"])
	headerColor.Printf("COSPI %s\n", formatAmount(total))
	line := fmt.Sprintf("  change %s (%.2f%%)", formatAmount(change), rate)
	switch {
	case change > 0:
		successColor.Println(line)
	case change < 0:
		errorColor.Println(line)
	default:
		fmt.Println(line)
	}
	points, _ := out["history"].([]any)
	fmt.Printf("  points: %d\n", len(points))
}

func renderBoothRanking(out map[string]any) {
	if revealed, ok := out["revealed"].(bool); ok && !revealed {
		printWarn("Results are not revealed yet.")
		return
	}
	rankings := asList(out, "rankings")
	if len(rankings) == 0 {
		printInfo("No rankings yet.")
		return
	}
	headerColor.Printf("%-4s %-24s %14s %9s\n", "#", "BOOTH", "INVESTED", "INVESTORS")
	for _, r := range rankings {
		name, _ := r["booth_name"].(string)
		fmt.Printf("%-4d %-24s %14s %9d\n", asInt64(r["rank"]), name,
			formatAmount(asInt64(r["total_investment"])), asInt64(r["investor_count"]))
	}
}

func renderMissionRanking(out map[string]any) {
	rankings := asList(out, "rankings")
	if len(rankings) == 0 {
		printInfo("No participants yet.")
		return
	}
	headerColor.Printf("%-4s %-20s %10s %7s\n", "#", "NAME", "PROGRESS", "MOVE")
	for _, r := range rankings {
		name, _ := r["user_name"].(string)
		move := asInt64(r["rank_change"])
		arrow := "-"
		if move > 0 {
			arrow = fmt.Sprintf("▲%d", move)
		} else if move < 0 {
			arrow = fmt.Sprintf("▼%d", -move)
		}
		fmt.Printf("%-4d %-20s %7d/%-3d %7s\n", asInt64(r["rank"]), name,
			asInt64(r["progress"]), asInt64(r["target"]), arrow)
	}
	if mine, ok := out["my_ranking"].(map[string]any); ok && mine != nil {
		fmt.Println()
		printInfo(fmt.Sprintf("You are #%d with %d/%d.",
			asInt64(mine["rank"]), asInt64(mine["progress"]), asInt64(mine["target"])))
	}
}

func renderMissions(out map[string]any) {
	missions := asList(out, "missions")
	for _, m := range missions {
		id, _ := m["mission_id"].(string)
		done, _ := m["completed"].(bool)
		mark := " "
		if done {
			mark = "✓"
		}
		fmt.Printf("[%s] %-10s %d/%d (%.0f%%)\n", mark, id,
			asInt64(m["progress"]), asInt64(m["target"]), asFloat(m["achievement_rate"]))
	}
}

func missionLine(m map[string]any) (string, bool) {
	id, _ := m["mission_id"].(string)
	done, _ := m["completed"].(bool)
	msg := fmt.Sprintf("%s: %d/%d", id, asInt64(m["progress"]), asInt64(m["target"]))
	if done {
		msg += " (completed!)"
	}
	return msg, done
}

func renderMission(m map[string]any) {
	msg, done := missionLine(m)
	if done {
		printSuccess(msg)
		return
	}
	printInfo(msg)
}

func ratingSavedMessage(out map[string]any, boothID int64) string {
	if review, ok := out["review"].(string); ok && strings.TrimSpace(review) != "" {
		return fmt.Sprintf("Rating and review saved for booth %d.", boothID)
	}
	return fmt.Sprintf("Rating saved for booth %d.", boothID)
}

func renderRatingSummaries(out map[string]any) {
	booths := asList(out, "booths")
	headerColor.Printf("%-24s %7s %7s %6s %6s %6s %6s %6s %6s\n",
		"BOOTH", "RATINGS", "REVIEWS", "FIRST", "BEST", "DIFF", "NO.1", "GAP", "GLOBAL")
	for _, b := range booths {
		name, _ := b["booth_name"].(string)
		fmt.Printf("%-24s %7d %7d %6.2f %6.2f %6.2f %6.2f %6.2f %6.2f\n",
			name, asInt64(b["rating_count"]), asInt64(b["review_count"]),
			asFloat(b["avg_first"]), asFloat(b["avg_best"]), asFloat(b["avg_different"]),
			asFloat(b["avg_number_one"]), asFloat(b["avg_gap"]), asFloat(b["avg_global"]))
	}
}
