package report

import (
	"fmt"
	"sort"
	"strings"
)

var kindLabels = map[Kind]string{
	Daily:   "Rapport quotidien",
	Weekly:  "Rapport hebdomadaire",
	Monthly: "Rapport mensuel",
}

// Markdown renders the report body handed to the web view and any file
// renderer. Sections mirror the JSON payload.
func Markdown(r *Report) string {
	var sections []string

	header := fmt.Sprintf("# %s — %s (%s)\n\nProchain tirage : %s",
		kindLabels[r.Kind], r.Game, r.PeriodID, r.NextDrawDate)
	if r.Warning != "" {
		header += "\n\n> " + r.Warning
	}
	sections = append(sections, header)

	sections = append(sections, statsSection(r))
	sections = append(sections, predictionsSection(r))
	sections = append(sections, gainsSection(r))
	if s := trendsSection(r); s != "" {
		sections = append(sections, s)
	}
	if s := historySection(r); s != "" {
		sections = append(sections, s)
	}
	sections = append(sections, adviceSection(r))

	return strings.Join(sections, "\n\n---\n\n")
}

func statsSection(r *Report) string {
	return fmt.Sprintf("## Statistiques\n\n- Tirages sur la période : %d\n- Gain total distribué : %.2f €\n- Gain moyen par rang gagnant : %.2f €\n- Gain maximal : %.2f €\n- Grilles jouées gagnantes : %d",
		r.Stats.DrawCount, r.Stats.TotalPayout, r.Stats.MeanPayout, r.Stats.MaxPayout, r.Stats.WinningPlayed)
}

func predictionsSection(r *Report) string {
	var b strings.Builder
	b.WriteString("## Prédictions\n")
	for i, g := range r.Predictions {
		line := fmt.Sprintf("\n%d. **%v**", i+1, g.Main)
		if len(g.Special) > 0 {
			line += fmt.Sprintf(" + %v", g.Special)
		}
		line += fmt.Sprintf(" — score %.3f, confiance %.0f %%", g.Score, g.Confidence*100)
		if g.JackpotFlag {
			line += " ★"
		}
		b.WriteString(line)
	}
	return b.String()
}

func gainsSection(r *Report) string {
	var b strings.Builder
	b.WriteString("## Gains prédits\n\n| Rang | Probabilité | Gain espéré |\n|---|---|---|\n")
	for _, t := range r.PredictedGains.Ranks {
		fmt.Fprintf(&b, "| %d (%s) | %.4f | %.2f € |\n", t.Rank, t.ID, t.Probability, t.ExpectedGain)
	}
	return strings.TrimRight(b.String(), "\n")
}

func trendsSection(r *Report) string {
	var lines []string
	if len(r.Trends.HotNumbers) > 0 {
		lines = append(lines, fmt.Sprintf("- Numéros chauds : %v", r.Trends.HotNumbers))
	}
	if len(r.Trends.ColdNumbers) > 0 {
		lines = append(lines, fmt.Sprintf("- Numéros froids : %v", r.Trends.ColdNumbers))
	}
	for i, p := range r.Trends.Pairs {
		if i >= 3 {
			break
		}
		lines = append(lines, fmt.Sprintf("- Paire %d-%d vue %d fois", p.Numbers[0], p.Numbers[1], p.Count))
	}
	if s := cycleLine("Cycle hebdomadaire", r.Trends.Cycles.Weekly); s != "" {
		lines = append(lines, s)
	}
	if s := cycleLine("Cycle lunaire", r.Trends.Cycles.Lunar); s != "" {
		lines = append(lines, s)
	}
	if len(lines) == 0 {
		return ""
	}
	return "## Tendances\n\n" + strings.Join(lines, "\n")
}

// cycleLine formats one cycle bucket map in stable key order.
func cycleLine(label string, buckets map[string]float64) string {
	if len(buckets) == 0 {
		return ""
	}
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %.1f", k, buckets[k]))
	}
	return fmt.Sprintf("- %s (somme moyenne) : %s", label, strings.Join(parts, ", "))
}

func historySection(r *Report) string {
	if len(r.History) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Historique récent\n")
	for _, d := range r.History {
		line := fmt.Sprintf("\n- %s : %v", d.Date, d.Main)
		if len(d.Special) > 0 {
			line += fmt.Sprintf(" + %v", d.Special)
		}
		b.WriteString(line)
	}
	return b.String()
}

func adviceSection(r *Report) string {
	var b strings.Builder
	b.WriteString("## Recommandations\n")
	for _, s := range r.Recommendations {
		b.WriteString("\n- " + s)
	}
	return b.String()
}
