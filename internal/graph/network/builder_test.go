package network

import (
	"testing"

	"fraudgraph/pkg/models"
)

func edgeBetween(g *models.NetworkGraph, relation, a, b string) *models.NetworkEdge {
	for _, e := range g.Edges {
		if e.RelationType != relation {
			continue
		}
		if (e.SourceID == a && e.TargetID == b) || (e.SourceID == b && e.TargetID == a) {
			return e
		}
	}
	return nil
}

func TestBuildEmptyInputsYieldEmptyGraph(t *testing.T) {
	g := NewBuilder(Config{}).Build(nil, nil, nil, nil, "")
	if len(g.Nodes) != 0 {
		t.Fatalf("expected no nodes, got %d", len(g.Nodes))
	}
	if g.Edges == nil || len(g.Edges) != 0 {
		t.Fatalf("expected empty non-nil edges, got %#v", g.Edges)
	}
	if g.Clusters == nil || len(g.Clusters) != 0 {
		t.Fatalf("expected empty non-nil clusters, got %#v", g.Clusters)
	}
}

func TestBuildNeverLeavesDanglingEdges(t *testing.T) {
	logins := []models.LoginRecord{
		{EventID: "l-1", UserID: "CUST-1", DeviceID: "DEV-9", IPAddress: "10.0.0.8"},
		{EventID: "l-2", UserID: "cust-2", DeviceID: "dev-9"},
	}
	connections := []models.ConnectionRecord{
		{ConnectionType: "same_document", ConnectedEntityID: "cust-3", Strength: "medium"},
	}
	transactions := []models.TransactionRecord{
		{TransactionID: "t-1", UserID: "cust-1", Type: "transfer", Amount: models.Num(100), Counterparty: "cust-4"},
	}

	g := NewBuilder(Config{}).Build(logins, nil, connections, transactions, "cust-1")
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}
	for _, e := range g.Edges {
		if !known[e.SourceID] || !known[e.TargetID] {
			t.Fatalf("dangling edge %+v", e)
		}
	}
}

func TestNodeIDsAreTypedAndLowercased(t *testing.T) {
	logins := []models.LoginRecord{
		{EventID: "l-1", UserID: "CUST-1", DeviceID: "DEV-9", IPAddress: "10.0.0.8"},
	}
	g := NewBuilder(Config{}).Build(logins, nil, nil, nil, "CUST-1")

	wantIDs := []string{"user:cust-1", "device:dev-9", "ip:10.0.0.8"}
	for _, want := range wantIDs {
		found := false
		for _, n := range g.Nodes {
			if n.ID == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected node %s, got %+v", want, g.Nodes)
		}
	}
}

func TestEdgeStrengthDerivedFromEventCount(t *testing.T) {
	logins := make([]models.LoginRecord, 0, 8)
	for i := 0; i < 5; i++ {
		logins = append(logins, models.LoginRecord{EventID: "l", UserID: "cust-1", DeviceID: "dev-a"})
	}
	logins = append(logins,
		models.LoginRecord{EventID: "l", UserID: "cust-1", DeviceID: "dev-b"},
		models.LoginRecord{EventID: "l", UserID: "cust-1", DeviceID: "dev-b"},
		models.LoginRecord{EventID: "l", UserID: "cust-1", DeviceID: "dev-c"},
	)

	g := NewBuilder(Config{}).Build(logins, nil, nil, nil, "cust-1")
	cases := map[string]string{
		"device:dev-a": "strong",
		"device:dev-b": "medium",
		"device:dev-c": "weak",
	}
	for dev, want := range cases {
		e := edgeBetween(g, "used_by", "user:cust-1", dev)
		if e == nil {
			t.Fatalf("missing used_by edge to %s", dev)
		}
		if e.Strength != want {
			t.Fatalf("edge to %s: strength %s, want %s (count=%d)", dev, e.Strength, want, e.EventCount)
		}
	}
}

func TestDeclaredConnectionStrengthOverridesCounts(t *testing.T) {
	connections := []models.ConnectionRecord{
		{ConnectionType: "shared_ip", ConnectedEntityID: "cust-2", Strength: "strong"},
	}
	g := NewBuilder(Config{}).Build(nil, nil, connections, nil, "cust-1")

	e := edgeBetween(g, "shared_ip", "user:cust-1", "user:cust-2")
	if e == nil {
		t.Fatalf("missing shared_ip edge")
	}
	if e.Strength != "strong" {
		t.Fatalf("declared strength lost: %+v", e)
	}

	for _, n := range g.Nodes {
		if n.ID != "user:cust-2" {
			continue
		}
		if n.RiskLevel != "high" {
			t.Fatalf("strong connection should mark the peer high risk, got %s", n.RiskLevel)
		}
		if flagged, _ := n.Attributes["flagged"].(bool); !flagged {
			t.Fatalf("expected flagged attribute on %+v", n)
		}
	}
}

func TestSharedDeviceRingClassification(t *testing.T) {
	logins := []models.LoginRecord{
		{EventID: "l-1", UserID: "cust-1", DeviceID: "dev-1"},
		{EventID: "l-2", UserID: "cust-2", DeviceID: "dev-1"},
		{EventID: "l-3", UserID: "cust-3", DeviceID: "dev-1"},
	}
	transactions := []models.TransactionRecord{
		{TransactionID: "t-1", UserID: "cust-1", Type: "transfer", Amount: models.Num(900), Counterparty: "mule-1"},
		{TransactionID: "t-2", UserID: "cust-2", Type: "transfer", Amount: models.Num(850), Counterparty: "mule-1"},
		{TransactionID: "t-3", UserID: "cust-3", Type: "transfer", Amount: models.Num(920), Counterparty: "mule-1"},
	}

	g := NewBuilder(Config{}).Build(logins, nil, nil, transactions, "cust-1")
	if len(g.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(g.Clusters))
	}
	cluster := g.Clusters[0]
	if cluster.Classification != "fraud_ring" {
		t.Fatalf("expected fraud_ring, got %s", cluster.Classification)
	}
	if cluster.CentralNodeID != "user:cust-1" {
		t.Fatalf("unexpected central entity: %s", cluster.CentralNodeID)
	}
	if len(cluster.MemberNodeIDs) != 5 {
		t.Fatalf("expected 5 members (3 users, device, counterparty), got %v", cluster.MemberNodeIDs)
	}

	// three users on one device means all three pairwise edges
	pairs := [][2]string{
		{"user:cust-1", "user:cust-2"},
		{"user:cust-1", "user:cust-3"},
		{"user:cust-2", "user:cust-3"},
	}
	for _, p := range pairs {
		if edgeBetween(g, "shared_device", p[0], p[1]) == nil {
			t.Fatalf("missing shared_device edge between %s and %s", p[0], p[1])
		}
	}
}

func TestLinkedAccountsOnOneDeviceFormRing(t *testing.T) {
	devices := []models.DeviceRecord{
		{DeviceID: "dev-7", DeviceType: "mobile", LinkedAccounts: []string{"acct-1", "acct-2", "acct-3"}},
	}

	g := NewBuilder(Config{}).Build(nil, devices, nil, nil, "acct-1")
	if len(g.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(g.Clusters))
	}
	cluster := g.Clusters[0]
	if cluster.Classification != "fraud_ring" {
		t.Fatalf("expected fraud_ring from linked accounts, got %s", cluster.Classification)
	}
	if cluster.CentralNodeID != "user:acct-1" {
		t.Fatalf("unexpected central entity: %s", cluster.CentralNodeID)
	}

	pairs := [][2]string{
		{"user:acct-1", "user:acct-2"},
		{"user:acct-1", "user:acct-3"},
		{"user:acct-2", "user:acct-3"},
	}
	for _, p := range pairs {
		if edgeBetween(g, "shared_device", p[0], p[1]) == nil {
			t.Fatalf("missing shared_device edge between %s and %s", p[0], p[1])
		}
	}
	for _, u := range []string{"user:acct-1", "user:acct-2", "user:acct-3"} {
		if edgeBetween(g, "used_by", u, "device:dev-7") == nil {
			t.Fatalf("missing used_by edge for %s", u)
		}
	}
}

func TestDeviceAndLoginSharedDeviceEdgesMerge(t *testing.T) {
	logins := []models.LoginRecord{
		{EventID: "l-1", UserID: "acct-1", DeviceID: "dev-7"},
		{EventID: "l-2", UserID: "acct-2", DeviceID: "dev-7"},
	}
	devices := []models.DeviceRecord{
		{DeviceID: "dev-7", LinkedAccounts: []string{"acct-1", "acct-2"}},
	}

	g := NewBuilder(Config{}).Build(logins, devices, nil, nil, "acct-1")
	count := 0
	for _, e := range g.Edges {
		if e.RelationType == "shared_device" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one merged shared_device edge, got %d", count)
	}
}

func TestPhoneSharingOnlyClassifiedAsFamily(t *testing.T) {
	connections := []models.ConnectionRecord{
		{ConnectionType: "shared_phone", ConnectedEntityID: "cust-2", Strength: "weak"},
	}
	g := NewBuilder(Config{}).Build(nil, nil, connections, nil, "cust-1")
	if len(g.Clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(g.Clusters))
	}
	cluster := g.Clusters[0]
	if cluster.Classification != "legitimate_family" {
		t.Fatalf("expected legitimate_family, got %s", cluster.Classification)
	}
	if cluster.RiskScore != 16 {
		t.Fatalf("expected score 16 for a two-node family, got %d", cluster.RiskScore)
	}
}

func TestCryptoCounterpartyBecomesWallet(t *testing.T) {
	transactions := []models.TransactionRecord{
		{TransactionID: "t-1", UserID: "cust-1", Type: "withdrawal", Amount: models.Num(-3000), Channel: "crypto", Counterparty: "0xABCDEF"},
		{TransactionID: "t-2", UserID: "cust-1", Type: "trade", Amount: models.Num(1200), Instrument: "GME"},
	}
	g := NewBuilder(Config{}).Build(nil, nil, nil, transactions, "cust-1")

	var wallet, stock bool
	for _, n := range g.Nodes {
		switch n.ID {
		case "wallet:0xabcdef":
			wallet = n.Type == "wallet"
		case "stock:gme":
			stock = n.Type == "stock"
		}
	}
	if !wallet {
		t.Fatalf("expected wallet node, got %+v", g.Nodes)
	}
	if !stock {
		t.Fatalf("expected stock node, got %+v", g.Nodes)
	}
	if edgeBetween(g, "transacted_with", "user:cust-1", "wallet:0xabcdef") == nil {
		t.Fatalf("missing transacted_with edge to wallet")
	}
	if edgeBetween(g, "traded", "user:cust-1", "stock:gme") == nil {
		t.Fatalf("missing traded edge to stock")
	}
}

func TestDisconnectedEntitiesFormSeparateClusters(t *testing.T) {
	logins := []models.LoginRecord{
		{EventID: "l-1", UserID: "cust-1", DeviceID: "dev-1"},
		{EventID: "l-2", UserID: "cust-9", DeviceID: "dev-9"},
	}
	g := NewBuilder(Config{}).Build(logins, nil, nil, nil, "cust-1")
	if len(g.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(g.Clusters))
	}
	if g.Clusters[0].ClusterID != "cluster-1" || g.Clusters[1].ClusterID != "cluster-2" {
		t.Fatalf("unexpected cluster ids: %+v", g.Clusters)
	}
}
