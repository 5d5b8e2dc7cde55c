package aggregator

import (
	"time"

	"github.com/google/uuid"

	"fraudgraph/internal/graph/network"
	"fraudgraph/internal/risk"
	"fraudgraph/internal/rules"
	"fraudgraph/internal/timeline"
	"fraudgraph/internal/transform/caserecords"
	"fraudgraph/pkg/models"
)

// Config bundles the tuning knobs for all four sub-procedures.
type Config struct {
	FlagThreshold float64
	Timeline      timeline.Config
	Network       network.Config
}

// Aggregator turns a raw case file into its derived projections.
type Aggregator struct {
	normalizer *caserecords.Normalizer
	timeline   *timeline.Builder
	network    *network.Builder
	engine     rules.Engine
	now        func() time.Time
}

// New creates an aggregator. engine may be nil when rules are disabled.
func New(cfg Config, engine rules.Engine) *Aggregator {
	if cfg.Timeline.LargeAmount <= 0 {
		cfg.Timeline.LargeAmount = cfg.FlagThreshold
	}
	return &Aggregator{
		normalizer: caserecords.NewNormalizer(cfg.FlagThreshold),
		timeline:   timeline.NewBuilder(cfg.Timeline),
		network:    network.NewBuilder(cfg.Network),
		engine:     engine,
		now:        time.Now,
	}
}

// Investigate computes the full envelope for one case file. All
// projections are recomputed fresh; nothing is persisted here.
func (a *Aggregator) Investigate(cf *models.CaseFile) *models.Investigation {
	a.applyRules(cf)

	events, stats := a.normalizer.Normalize(cf)

	return &models.Investigation{
		InvestigationID: uuid.NewString(),
		CaseID:          cf.Case.CaseID,
		GeneratedAt:     a.now().UTC(),
		Completeness:    cf.Completeness,
		Normalization:   stats,
		Events:          events,
		Risk:            a.Risk(cf),
		Timeline:        a.Timeline(cf),
		Network:         *a.Network(cf),
	}
}

// Risk computes the risk decomposition projection on its own.
func (a *Aggregator) Risk(cf *models.CaseFile) models.RiskDecomposition {
	caseScore := -1
	if cf.Case.CaseScore != nil {
		caseScore = *cf.Case.CaseScore
	}
	var profile *risk.Profile
	if cf.Customer != nil && cf.Account != nil {
		profile = &risk.Profile{
			DeclaredMonthlyIncome: cf.Customer.DeclaredIncome,
			TotalDeposits30d:      cf.Account.TotalDeposits30d,
		}
	}
	return risk.Decompose(cf.Case.Alerts, caseScore, profile)
}

// Timeline computes the timeline projection on its own.
func (a *Aggregator) Timeline(cf *models.CaseFile) models.Timeline {
	return a.timeline.Build(cf.Case.Alerts, cf.Transactions, cf.Logins)
}

// Network computes the network graph projection on its own.
func (a *Aggregator) Network(cf *models.CaseFile) *models.NetworkGraph {
	return a.network.Build(cf.Logins, cf.Devices, cf.Connections, cf.Transactions, cf.Case.CustomerID)
}

// applyRules runs the tagging rules over raw records before
// normalization. Rule-supplied categories take precedence over the
// signal-text inference fallback in the decomposer.
func (a *Aggregator) applyRules(cf *models.CaseFile) {
	if a.engine == nil {
		return
	}

	for i := range cf.Case.Alerts {
		alert := &cf.Case.Alerts[i]
		for _, tag := range a.engine.Apply("alerts", rules.FieldsOf(alert)) {
			if alert.RiskCategory == "" && tag.Category != "" {
				alert.RiskCategory = tag.Category
			}
			if tag.Name != "" {
				alert.RawSignalRefs = appendMissing(alert.RawSignalRefs, tag.Name)
			}
		}
	}
	for i := range cf.Logins {
		login := &cf.Logins[i]
		for _, tag := range a.engine.Apply("logins", rules.FieldsOf(login)) {
			if tag.Name != "" {
				login.RiskFlags = appendMissing(login.RiskFlags, tag.Name)
			}
		}
	}
	for i := range cf.Transactions {
		txn := &cf.Transactions[i]
		for _, tag := range a.engine.Apply("transactions", rules.FieldsOf(txn)) {
			if tag.Name != "" {
				txn.RiskFlags = appendMissing(txn.RiskFlags, tag.Name)
			}
		}
	}
}

func appendMissing(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
