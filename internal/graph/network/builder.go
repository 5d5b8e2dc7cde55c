package network

import (
	"fmt"
	"strings"

	"fraudgraph/pkg/models"
)

// Config controls clustering and ring classification. The thresholds are
// tuning constants with no derivation; every one is overridable.
type Config struct {
	PerSizePoints       int
	SizeCap             int
	HighRiskNodePoints  int
	StrongEdgePoints    int
	RingSharedDeviceMin int
	RingSharedIPMin     int
	FamilyMaxSize       int
}

// Builder derives the case entity graph from raw records.
type Builder struct {
	cfg Config
}

// NewBuilder creates a builder, applying defaults for zero fields.
func NewBuilder(cfg Config) *Builder {
	if cfg.PerSizePoints <= 0 {
		cfg.PerSizePoints = 8
	}
	if cfg.SizeCap <= 0 {
		cfg.SizeCap = 40
	}
	if cfg.HighRiskNodePoints <= 0 {
		cfg.HighRiskNodePoints = 20
	}
	if cfg.StrongEdgePoints <= 0 {
		cfg.StrongEdgePoints = 5
	}
	if cfg.RingSharedDeviceMin <= 0 {
		cfg.RingSharedDeviceMin = 2
	}
	if cfg.RingSharedIPMin <= 0 {
		cfg.RingSharedIPMin = 3
	}
	if cfg.FamilyMaxSize <= 0 {
		cfg.FamilyMaxSize = 3
	}
	return &Builder{cfg: cfg}
}

// graphState accumulates nodes and edges for one Build call, keeping
// first-seen order for deterministic tie-breaks.
type graphState struct {
	nodes     map[string]*models.NetworkNode
	nodeOrder []string
	edges     []*models.NetworkEdge
	edgeIndex map[string]*models.NetworkEdge
}

// Build derives nodes, edges and clusters for one case. Pure and
// deterministic over its inputs; empty sources yield an empty graph.
func (b *Builder) Build(logins []models.LoginRecord, devices []models.DeviceRecord, connections []models.ConnectionRecord, transactions []models.TransactionRecord, primaryUserID string) *models.NetworkGraph {
	st := &graphState{
		nodes:     make(map[string]*models.NetworkNode),
		edgeIndex: make(map[string]*models.NetworkEdge),
	}

	if primaryUserID != "" {
		st.ensureNode(userNodeID(primaryUserID), "user", "unknown", map[string]interface{}{"primary": true})
	}

	b.mapLogins(st, logins, primaryUserID)
	b.mapDevices(st, devices)
	b.mapConnections(st, connections, primaryUserID)
	b.mapTransactions(st, transactions, primaryUserID)
	st.finalizeStrengths()

	graph := &models.NetworkGraph{
		Nodes:    make([]*models.NetworkNode, 0, len(st.nodeOrder)),
		Edges:    st.edges,
		Clusters: b.clusterize(st),
	}
	for _, id := range st.nodeOrder {
		graph.Nodes = append(graph.Nodes, st.nodes[id])
	}
	if graph.Edges == nil {
		graph.Edges = []*models.NetworkEdge{}
	}
	return graph
}

// mapLogins adds user/device/ip nodes, used_by edges, and the pairwise
// shared_device / shared_ip edges when two or more distinct users land on
// the same fingerprint.
func (b *Builder) mapLogins(st *graphState, logins []models.LoginRecord, primaryUserID string) {
	type fingerprint struct {
		users  []string // distinct, first-seen order
		events int
	}
	byDevice := make(map[string]*fingerprint)
	deviceOrder := []string{}
	byIP := make(map[string]*fingerprint)
	ipOrder := []string{}

	for i := range logins {
		l := &logins[i]
		user := l.UserID
		if user == "" {
			user = primaryUserID
		}
		if user == "" {
			continue
		}
		userID := st.ensureNode(userNodeID(user), "user", "unknown", nil)

		if l.DeviceID != "" {
			devID := st.ensureNode(deviceNodeID(l.DeviceID), "device", "unknown", nil)
			st.addEdge("used_by", userID, devID, l.DeviceID)
			fp := byDevice[l.DeviceID]
			if fp == nil {
				fp = &fingerprint{}
				byDevice[l.DeviceID] = fp
				deviceOrder = append(deviceOrder, l.DeviceID)
			}
			fp.events++
			fp.users = appendDistinct(fp.users, user)
		}
		if l.IPAddress != "" {
			ipID := st.ensureNode(ipNodeID(l.IPAddress), "ip", "unknown", nil)
			st.addEdge("used_by", userID, ipID, l.IPAddress)
			fp := byIP[l.IPAddress]
			if fp == nil {
				fp = &fingerprint{}
				byIP[l.IPAddress] = fp
				ipOrder = append(ipOrder, l.IPAddress)
			}
			fp.events++
			fp.users = appendDistinct(fp.users, user)
		}
	}

	for _, dev := range deviceOrder {
		fp := byDevice[dev]
		if len(fp.users) < 2 {
			continue
		}
		forEachPair(fp.users, func(a, c string) {
			st.addEdgeN("shared_device", userNodeID(a), userNodeID(c), dev, fp.events)
		})
	}
	for _, ip := range ipOrder {
		fp := byIP[ip]
		if len(fp.users) < 2 {
			continue
		}
		forEachPair(fp.users, func(a, c string) {
			st.addEdgeN("shared_ip", userNodeID(a), userNodeID(c), ip, fp.events)
		})
	}
}

// mapDevices links every account a device fingerprint was seen on. Two
// or more linked accounts on one fingerprint gives the pairwise
// shared_device edges directly from the device data.
func (b *Builder) mapDevices(st *graphState, devices []models.DeviceRecord) {
	for i := range devices {
		d := &devices[i]
		if d.DeviceID == "" {
			continue
		}
		var attrs map[string]interface{}
		if d.IsTrusted {
			attrs = map[string]interface{}{"trusted": true}
		}
		devID := st.ensureNode(deviceNodeID(d.DeviceID), "device", "unknown", attrs)

		accounts := make([]string, 0, len(d.LinkedAccounts))
		for _, acct := range d.LinkedAccounts {
			if acct == "" {
				continue
			}
			accounts = appendDistinct(accounts, acct)
		}
		for _, acct := range accounts {
			userID := st.ensureNode(userNodeID(acct), "user", "unknown", nil)
			st.addEdge("used_by", userID, devID, d.DeviceID)
		}
		forEachPair(accounts, func(a, c string) {
			st.addEdge("shared_device", userNodeID(a), userNodeID(c), d.DeviceID)
		})
	}
}

// mapConnections turns upstream-declared entity links into edges between
// the primary subject and the connected entity.
func (b *Builder) mapConnections(st *graphState, connections []models.ConnectionRecord, primaryUserID string) {
	if primaryUserID == "" {
		return
	}
	primary := userNodeID(primaryUserID)
	for i := range connections {
		c := &connections[i]
		if c.ConnectedEntityID == "" || c.ConnectionType == "" {
			continue
		}
		risk := riskFromStrength(c.Strength)
		other := st.ensureNode(userNodeID(c.ConnectedEntityID), "user", risk, map[string]interface{}{"flagged": true})
		edge := st.addEdge(c.ConnectionType, primary, other, c.Details)
		if s := strings.ToLower(strings.TrimSpace(c.Strength)); s != "" {
			edge.Strength = s
			edge.EventCount = 0 // declared strength, not count-derived
		}
	}
}

// mapTransactions adds counterparty and instrument nodes, transacted_with
// edges, and links users who share a counterparty or instrument.
func (b *Builder) mapTransactions(st *graphState, transactions []models.TransactionRecord, primaryUserID string) {
	usersByPeer := make(map[string][]string)
	peerOrder := []string{}

	for i := range transactions {
		t := &transactions[i]
		user := t.UserID
		if user == "" {
			user = primaryUserID
		}
		if user == "" {
			continue
		}
		userID := st.ensureNode(userNodeID(user), "user", "unknown", nil)

		if t.Instrument != "" {
			stockID := st.ensureNode(stockNodeID(t.Instrument), "stock", "unknown", nil)
			st.addEdge("traded", userID, stockID, t.Instrument)
			key := "instrument:" + t.Instrument
			if _, seen := usersByPeer[key]; !seen {
				peerOrder = append(peerOrder, key)
			}
			usersByPeer[key] = appendDistinct(usersByPeer[key], user)
		}
		if t.Counterparty != "" {
			peerID := counterpartyNodeID(t)
			peerType := "user"
			if strings.EqualFold(t.Channel, "crypto") {
				peerType = "wallet"
			}
			st.ensureNode(peerID, peerType, "unknown", nil)
			st.addEdge("transacted_with", userID, peerID, t.Counterparty)
			key := "counterparty:" + t.Counterparty
			if _, seen := usersByPeer[key]; !seen {
				peerOrder = append(peerOrder, key)
			}
			usersByPeer[key] = appendDistinct(usersByPeer[key], user)
		}
	}

	for _, key := range peerOrder {
		users := usersByPeer[key]
		if len(users) < 2 {
			continue
		}
		evidence := strings.SplitN(key, ":", 2)[1]
		forEachPair(users, func(a, c string) {
			st.addEdge("transacted_with", userNodeID(a), userNodeID(c), evidence)
		})
	}
}

// clusterize groups nodes into connected components and scores each one.
func (b *Builder) clusterize(st *graphState) []*models.Cluster {
	if len(st.nodeOrder) == 0 {
		return []*models.Cluster{}
	}

	parent := make(map[string]string, len(st.nodeOrder))
	var find func(string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	for _, id := range st.nodeOrder {
		parent[id] = id
	}
	for _, e := range st.edges {
		ra, rb := find(e.SourceID), find(e.TargetID)
		if ra != rb {
			parent[rb] = ra
		}
	}

	members := make(map[string][]string)
	rootOrder := []string{}
	for _, id := range st.nodeOrder {
		root := find(id)
		if _, seen := members[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		members[root] = append(members[root], id)
	}

	degree := make(map[string]int, len(st.nodeOrder))
	for _, e := range st.edges {
		degree[e.SourceID]++
		degree[e.TargetID]++
	}

	clusters := make([]*models.Cluster, 0, len(rootOrder))
	for i, root := range rootOrder {
		ids := members[root]
		inCluster := make(map[string]bool, len(ids))
		for _, id := range ids {
			inCluster[id] = true
		}

		sharedDevice, sharedIP, sharedPhone, strong, otherRelations := 0, 0, 0, 0, 0
		for _, e := range st.edges {
			if !inCluster[e.SourceID] {
				continue
			}
			switch e.RelationType {
			case "shared_device":
				sharedDevice++
			case "shared_ip":
				sharedIP++
			case "shared_phone":
				sharedPhone++
			case "used_by":
			default:
				otherRelations++
			}
			if e.Strength == "strong" {
				strong++
			}
		}

		highRisk := 0
		for _, id := range ids {
			if st.nodes[id].RiskLevel == "high" {
				highRisk++
			}
		}

		score := len(ids) * b.cfg.PerSizePoints
		if score > b.cfg.SizeCap {
			score = b.cfg.SizeCap
		}
		score += b.cfg.HighRiskNodePoints*highRisk + b.cfg.StrongEdgePoints*strong
		if score > 100 {
			score = 100
		}

		classification := "unknown"
		switch {
		case sharedDevice >= b.cfg.RingSharedDeviceMin || sharedIP >= b.cfg.RingSharedIPMin:
			classification = "fraud_ring"
		case sharedPhone > 0 && sharedDevice == 0 && sharedIP == 0 && otherRelations == 0 &&
			len(ids) <= b.cfg.FamilyMaxSize:
			classification = "legitimate_family"
		}

		central := ids[0]
		for _, id := range ids {
			if degree[id] > degree[central] {
				central = id
			}
		}

		clusters = append(clusters, &models.Cluster{
			ClusterID:      fmt.Sprintf("cluster-%d", i+1),
			MemberNodeIDs:  ids,
			RiskScore:      score,
			Classification: classification,
			CentralNodeID:  central,
		})
	}
	return clusters
}

func (st *graphState) ensureNode(id, nodeType, riskLevel string, attrs map[string]interface{}) string {
	if node, ok := st.nodes[id]; ok {
		// upgrade risk only, never downgrade
		if riskRank(riskLevel) > riskRank(node.RiskLevel) {
			node.RiskLevel = riskLevel
		}
		for k, v := range attrs {
			if node.Attributes == nil {
				node.Attributes = map[string]interface{}{}
			}
			node.Attributes[k] = v
		}
		return id
	}
	st.nodes[id] = &models.NetworkNode{ID: id, Type: nodeType, RiskLevel: riskLevel, Attributes: attrs}
	st.nodeOrder = append(st.nodeOrder, id)
	return id
}

func (st *graphState) addEdge(relation, sourceID, targetID, evidence string) *models.NetworkEdge {
	return st.addEdgeN(relation, sourceID, targetID, evidence, 1)
}

func (st *graphState) addEdgeN(relation, sourceID, targetID, evidence string, events int) *models.NetworkEdge {
	a, c := sourceID, targetID
	if c < a {
		a, c = c, a
	}
	key := relation + "|" + a + "|" + c
	if edge, ok := st.edgeIndex[key]; ok {
		edge.EventCount += events
		return edge
	}
	edge := &models.NetworkEdge{
		SourceID:     sourceID,
		TargetID:     targetID,
		RelationType: relation,
		Evidence:     evidence,
		EventCount:   events,
	}
	st.edgeIndex[key] = edge
	st.edges = append(st.edges, edge)
	return edge
}

// finalizeStrengths maps corroborating event counts to edge strength for
// every edge that did not carry a declared strength.
func (st *graphState) finalizeStrengths() {
	for _, e := range st.edges {
		if e.Strength != "" {
			continue
		}
		switch {
		case e.EventCount >= 5:
			e.Strength = "strong"
		case e.EventCount >= 2:
			e.Strength = "medium"
		default:
			e.Strength = "weak"
		}
	}
}

func userNodeID(id string) string { return "user:" + strings.ToLower(id) }

func deviceNodeID(id string) string { return "device:" + strings.ToLower(id) }

func ipNodeID(ip string) string { return "ip:" + strings.ToLower(ip) }

func stockNodeID(sym string) string { return "stock:" + strings.ToLower(sym) }

func counterpartyNodeID(t *models.TransactionRecord) string {
	if strings.EqualFold(t.Channel, "crypto") {
		return "wallet:" + strings.ToLower(t.Counterparty)
	}
	return "user:" + strings.ToLower(t.Counterparty)
}

func riskFromStrength(strength string) string {
	switch strings.ToLower(strings.TrimSpace(strength)) {
	case "strong":
		return "high"
	case "medium":
		return "medium"
	case "weak":
		return "low"
	default:
		return "unknown"
	}
}

func riskRank(level string) int {
	switch level {
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	default:
		return 0
	}
}

func appendDistinct(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func forEachPair(ids []string, fn func(a, b string)) {
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			fn(ids[i], ids[j])
		}
	}
}
