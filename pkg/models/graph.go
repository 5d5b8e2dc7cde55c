package models

// NetworkNode is one entity in the case network graph.
type NetworkNode struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`       // user, device, ip, wallet, stock
	RiskLevel  string                 `json:"risk_level"` // low, medium, high, unknown
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// NetworkEdge connects two nodes with a typed relation.
type NetworkEdge struct {
	SourceID     string `json:"source_id"`
	TargetID     string `json:"target_id"`
	RelationType string `json:"relation_type"` // used_by, shared_device, shared_ip, shared_phone, same_document, transacted_with, traded
	Strength     string `json:"strength"`      // weak, medium, strong
	Evidence     string `json:"evidence,omitempty"`
	EventCount   int    `json:"event_count,omitempty"`
}

// Cluster is a connected component of the graph with a risk assessment.
type Cluster struct {
	ClusterID      string   `json:"cluster_id"`
	MemberNodeIDs  []string `json:"member_node_ids"`
	RiskScore      int      `json:"risk_score"`
	Classification string   `json:"classification"` // fraud_ring, legitimate_family, unknown
	CentralNodeID  string   `json:"central_entity"`
}

// NetworkGraph is the derived entity graph for one case.
type NetworkGraph struct {
	Nodes    []*NetworkNode `json:"nodes"`
	Edges    []*NetworkEdge `json:"edges"`
	Clusters []*Cluster     `json:"clusters"`
}
