package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"fraudgraph/internal/logger"
	"fraudgraph/pkg/models"
)

// The five fixed risk categories, in output order. Weights sum to 1.0.
const (
	CategoryIdentity    = "Identity"
	CategoryBehavioral  = "Behavioral"
	CategoryTransaction = "Transaction"
	CategoryNetwork     = "Network"
	CategoryHistorical  = "Historical"
)

var componentOrder = []struct {
	Name   string
	Weight float64
}{
	{CategoryIdentity, 0.20},
	{CategoryBehavioral, 0.25},
	{CategoryTransaction, 0.30},
	{CategoryNetwork, 0.15},
	{CategoryHistorical, 0.10},
}

const maxConfidenceBonus = 25.0

// Profile carries the account facts used for income-ratio factors.
type Profile struct {
	DeclaredMonthlyIncome float64
	TotalDeposits30d      float64
}

// Decompose breaks a case score into five weighted components.
//
// caseScore is the upstream authority's headline number; when it is >= 0
// the locally derived raw scores are rescaled so the weighted total equals
// min(caseScore, 100) exactly. Pass caseScore = -1 to let the local
// evidence sum stand on its own.
func Decompose(alerts []models.AlertRecord, caseScore int, profile *Profile) models.RiskDecomposition {
	components := make([]models.RiskComponent, len(componentOrder))
	for i, c := range componentOrder {
		components[i] = models.RiskComponent{Name: c.Name, Weight: c.Weight}
	}

	if len(alerts) == 0 {
		attachIncomeFactor(components, profile)
		return models.RiskDecomposition{
			OverallScore:       0,
			RiskLevel:          "low",
			Components:         components,
			ComparisonBaseline: "no alerts",
		}
	}

	groups := groupAlerts(alerts)
	localTotal := 0.0
	for i := range components {
		g := groups[components[i].Name]
		if g == nil {
			continue
		}
		components[i].RawScore = g.rawScore()
		components[i].ContributingFactors = g.factors
		localTotal += components[i].RawScore * components[i].Weight
	}

	attachIncomeFactor(components, profile)

	target := int(math.Round(math.Min(100, localTotal)))
	if caseScore >= 0 {
		target = caseScore
		if target > 100 {
			target = 100
		}
	}

	allocate(components, localTotal, target)

	return models.RiskDecomposition{
		OverallScore:       target,
		RiskLevel:          riskLevel(target),
		Components:         components,
		ComparisonBaseline: fmt.Sprintf("%d alerts across %d risk categories", len(alerts), countActive(components)),
		KeyDifferentiators: differentiators(components),
	}
}

// allocate distributes target points proportionally to the local weighted
// contributions and pushes the integer remainder onto the largest component
// so the displayed total is exact. With no local evidence at all the fixed
// component weights carry the split, so an authoritative case score still
// adds up.
func allocate(components []models.RiskComponent, localTotal float64, target int) {
	if target <= 0 {
		return
	}

	sum := 0
	largest := 0
	for i := range components {
		share := components[i].Weight
		if localTotal > 0 {
			share = components[i].RawScore * components[i].Weight / localTotal
		}
		points := int(math.Round(share * float64(target)))
		components[i].WeightedContribution = float64(points)
		sum += points
		if components[i].WeightedContribution > components[largest].WeightedContribution {
			largest = i
		}
	}
	if remainder := target - sum; remainder != 0 {
		components[largest].WeightedContribution += float64(remainder)
	}
}

// attachIncomeFactor flags deposits outrunning declared income on the
// Transaction component, whether or not any alert fired.
func attachIncomeFactor(components []models.RiskComponent, profile *Profile) {
	if profile == nil || profile.DeclaredMonthlyIncome <= 0 {
		return
	}
	ratio := profile.TotalDeposits30d / profile.DeclaredMonthlyIncome
	if ratio <= 1 {
		return
	}
	factor := fmt.Sprintf("Deposits exceed declared income by %.1fx", ratio)
	for i := range components {
		if components[i].Name == CategoryTransaction {
			components[i].ContributingFactors = append(components[i].ContributingFactors, factor)
		}
	}
}

type group struct {
	contribution float64
	confidence   float64
	count        int
	factors      []string
}

func (g *group) rawScore() float64 {
	bonus := 0.0
	if g.count > 0 {
		bonus = math.Min(maxConfidenceBonus, g.confidence/float64(g.count)*maxConfidenceBonus)
	}
	return math.Min(100, g.contribution*100+bonus)
}

func groupAlerts(alerts []models.AlertRecord) map[string]*group {
	groups := make(map[string]*group, len(componentOrder))
	for i := range alerts {
		a := &alerts[i]
		name := categoryOf(a)
		g := groups[name]
		if g == nil {
			g = &group{}
			groups[name] = g
		}
		g.count++
		g.confidence += a.Confidence
		for _, ev := range a.Evidence {
			g.contribution += math.Abs(ev.Contribution)
			if f := factorText(ev); f != "" {
				g.factors = append(g.factors, f)
			}
		}
		if len(a.Evidence) == 0 && a.Description != "" {
			g.factors = append(g.factors, a.Description)
		}
	}
	return groups
}

// categoryOf resolves an alert to one of the five fixed categories.
// Explicit category wins, then evidence tags, then signal-text inference
// as a degraded path. Uncategorizable alerts land in Behavioral.
func categoryOf(a *models.AlertRecord) string {
	if name, ok := canonicalCategory(a.RiskCategory); ok {
		return name
	}
	for _, ev := range a.Evidence {
		if name, ok := canonicalCategory(ev.RiskCategory); ok {
			return name
		}
	}
	if name, ok := inferCategory(a.Signal + " " + a.AlertType + " " + a.DetectorSource); ok {
		logger.Debugf("Inferred risk category %s for alert %s from signal text", name, a.AlertID)
		return name
	}
	logger.Debugf("No risk category for alert %s, using %s", a.AlertID, CategoryBehavioral)
	return CategoryBehavioral
}

func canonicalCategory(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "identity":
		return CategoryIdentity, true
	case "behavioral", "behavior":
		return CategoryBehavioral, true
	case "transaction", "transactional":
		return CategoryTransaction, true
	case "network":
		return CategoryNetwork, true
	case "historical", "history":
		return CategoryHistorical, true
	}
	return "", false
}

var inferenceKeywords = []struct {
	name     string
	keywords []string
}{
	{CategoryIdentity, []string{"kyc", "identity", "document", "sanction", "pep"}},
	{CategoryTransaction, []string{"transaction", "deposit", "withdrawal", "structuring", "laundering", "velocity"}},
	{CategoryNetwork, []string{"network", "device", "ip", "ring", "vpn", "proxy"}},
	{CategoryHistorical, []string{"prior", "history", "repeat", "recidiv"}},
	{CategoryBehavioral, []string{"behavior", "pattern", "dormant", "anomal", "login", "ato", "takeover"}},
}

func inferCategory(text string) (string, bool) {
	text = strings.ToLower(text)
	for _, entry := range inferenceKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.name, true
			}
		}
	}
	return "", false
}

func factorText(ev models.Evidence) string {
	if ev.Explanation != "" {
		return ev.Explanation
	}
	return ev.Feature
}

func riskLevel(score int) string {
	switch {
	case score >= 80:
		return "critical"
	case score >= 60:
		return "high"
	case score >= 30:
		return "medium"
	default:
		return "low"
	}
}

func countActive(components []models.RiskComponent) int {
	n := 0
	for i := range components {
		if components[i].RawScore > 0 {
			n++
		}
	}
	return n
}

// differentiators names the heaviest components, largest first.
func differentiators(components []models.RiskComponent) []string {
	idx := make([]int, 0, len(components))
	for i := range components {
		if components[i].WeightedContribution > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return components[idx[a]].WeightedContribution > components[idx[b]].WeightedContribution
	})
	if len(idx) > 3 {
		idx = idx[:3]
	}
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, fmt.Sprintf("%s risk contributes %d points", components[i].Name, int(components[i].WeightedContribution)))
	}
	return out
}
