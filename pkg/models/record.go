package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Amount decodes a JSON number or numeric string. Valid is false when the
// raw value could not be interpreted as a number, so a single bad record
// can be skipped instead of failing the whole payload.
type Amount struct {
	Value float64
	Valid bool
}

// UnmarshalJSON never returns an error; junk values yield Valid=false.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		a.Value, a.Valid = 0, false
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			a.Value, a.Valid = 0, false
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			a.Value, a.Valid = 0, false
			return nil
		}
		a.Value, a.Valid = v, true
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		a.Value, a.Valid = 0, false
		return nil
	}
	a.Value, a.Valid = v, true
	return nil
}

// MarshalJSON emits the numeric value, or null when invalid.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// Num builds a valid Amount. Test and fixture helper.
func Num(v float64) Amount {
	return Amount{Value: v, Valid: true}
}

// Evidence is one named feature/contribution pair explaining why an alert fired.
type Evidence struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
	Explanation  string  `json:"explanation,omitempty"`
	RiskCategory string  `json:"risk_category,omitempty"`
}

// AlertRecord is a detector-generated signal attached to a case.
// Timestamps arrive as strings and are validated at the normalization boundary.
type AlertRecord struct {
	AlertID        string     `json:"alert_id"`
	AlertType      string     `json:"alert_type,omitempty"`
	TriggeredAt    string     `json:"triggered_at"`
	Severity       string     `json:"severity"`
	RiskScore      int        `json:"risk_score,omitempty"`
	Confidence     float64    `json:"confidence,omitempty"`
	Description    string     `json:"description,omitempty"`
	DetectorSource string     `json:"detector_source,omitempty"`
	Signal         string     `json:"signal,omitempty"`
	RiskCategory   string     `json:"risk_category,omitempty"`
	Evidence       []Evidence `json:"evidence,omitempty"`
	RawSignalRefs  []string   `json:"raw_signal_refs,omitempty"`
}

// TransactionRecord is a single financial transaction.
type TransactionRecord struct {
	TransactionID string   `json:"transaction_id"`
	UserID        string   `json:"customer_id,omitempty"`
	AccountID     string   `json:"account_id,omitempty"`
	Timestamp     string   `json:"timestamp"`
	Type          string   `json:"type"` // deposit, withdrawal, trade, transfer
	Amount        Amount   `json:"amount"`
	Currency      string   `json:"currency,omitempty"`
	Status        string   `json:"status,omitempty"`
	Channel       string   `json:"channel,omitempty"`
	Counterparty  string   `json:"counterparty,omitempty"`
	Instrument    string   `json:"instrument,omitempty"`
	RiskFlags     []string `json:"risk_flags,omitempty"`
}

// LoginRecord is a single authentication event.
type LoginRecord struct {
	EventID         string   `json:"event_id"`
	UserID          string   `json:"customer_id,omitempty"`
	AccountID       string   `json:"account_id,omitempty"`
	Timestamp       string   `json:"timestamp"`
	IPAddress       string   `json:"ip_address,omitempty"`
	DeviceID        string   `json:"device_id,omitempty"`
	DeviceType      string   `json:"device_type,omitempty"`
	LocationCountry string   `json:"location_country,omitempty"`
	LocationCity    string   `json:"location_city,omitempty"`
	IsVPN           bool     `json:"is_vpn,omitempty"`
	IsProxy         bool     `json:"is_proxy,omitempty"`
	LoginSuccess    bool     `json:"login_success"`
	FailureReason   string   `json:"failure_reason,omitempty"`
	EventType       string   `json:"event_type,omitempty"` // login, password_change
	RiskFlags       []string `json:"risk_flags,omitempty"`
}

// DeviceRecord describes a device fingerprint seen on the case.
type DeviceRecord struct {
	DeviceID       string   `json:"device_id"`
	DeviceType     string   `json:"device_type,omitempty"`
	OS             string   `json:"os,omitempty"`
	FirstSeen      string   `json:"first_seen,omitempty"`
	LastSeen       string   `json:"last_seen,omitempty"`
	IsTrusted      bool     `json:"is_trusted,omitempty"`
	LinkedAccounts []string `json:"linked_accounts,omitempty"`
}

// ConnectionRecord links the case subject to another entity.
type ConnectionRecord struct {
	ConnectionType    string `json:"connection_type"` // shared_device, shared_ip, shared_phone, same_document
	ConnectedEntityID string `json:"connected_entity_id"`
	Strength          string `json:"connection_strength,omitempty"` // weak, medium, strong
	FirstObserved     string `json:"first_observed,omitempty"`
	Details           string `json:"details,omitempty"`
}

// CustomerProfile is the KYC view of the case subject.
type CustomerProfile struct {
	CustomerID         string   `json:"customer_id"`
	FullName           string   `json:"full_name,omitempty"`
	Country            string   `json:"country,omitempty"`
	VerificationStatus string   `json:"verification_status,omitempty"`
	RiskRating         string   `json:"risk_rating,omitempty"`
	PEPStatus          bool     `json:"pep_status,omitempty"`
	SanctionsHit       bool     `json:"sanctions_hit,omitempty"`
	AdverseMedia       bool     `json:"adverse_media,omitempty"`
	DocumentVerified   bool     `json:"document_verified,omitempty"`
	DocumentFlags      []string `json:"document_flags,omitempty"`
	DeclaredIncome     float64  `json:"declared_income,omitempty"`
	IncomeCurrency     string   `json:"income_currency,omitempty"`
}

// AccountSummary is the account activity view of the case subject.
type AccountSummary struct {
	AccountID            string  `json:"account_id"`
	CustomerID           string  `json:"customer_id,omitempty"`
	AccountType          string  `json:"account_type,omitempty"`
	AccountStatus        string  `json:"account_status,omitempty"`
	CreatedAt            string  `json:"created_at,omitempty"`
	TotalDeposits30d     float64 `json:"total_deposits_30d,omitempty"`
	TotalWithdrawals30d  float64 `json:"total_withdrawals_30d,omitempty"`
	TotalTrades30d       int     `json:"total_trades_30d,omitempty"`
	AccountAgeDays       int     `json:"account_age_days,omitempty"`
	IsDormantReactivated bool    `json:"is_dormant_reactivated,omitempty"`
}

// PriorCase is a previous investigation outcome for the same customer.
type PriorCase struct {
	CaseID   string `json:"case_id"`
	CaseDate string `json:"case_date,omitempty"`
	CaseType string `json:"case_type,omitempty"`
	Outcome  string `json:"outcome,omitempty"` // confirmed_fraud, false_positive, inconclusive
}

// CaseSummary is the case document itself.
type CaseSummary struct {
	CaseID     string        `json:"case_id"`
	CustomerID string        `json:"customer_id"`
	AccountID  string        `json:"account_id"`
	CreatedAt  string        `json:"created_at,omitempty"`
	Status     string        `json:"status,omitempty"`
	CaseScore  *int          `json:"case_score,omitempty"`
	Alerts     []AlertRecord `json:"alerts,omitempty"`
}

// DataCompleteness records which upstream sources returned data.
type DataCompleteness struct {
	KYCData            bool `json:"kyc_data"`
	TransactionHistory bool `json:"transaction_history"`
	LoginHistory       bool `json:"login_history"`
	DeviceData         bool `json:"device_data"`
	NetworkAnalysis    bool `json:"network_analysis"`
	PriorCases         bool `json:"prior_cases"`
}

// CaseFile is the full raw material for one investigation.
type CaseFile struct {
	Case         CaseSummary         `json:"case"`
	Customer     *CustomerProfile    `json:"customer,omitempty"`
	Account      *AccountSummary     `json:"account,omitempty"`
	Transactions []TransactionRecord `json:"transactions,omitempty"`
	Logins       []LoginRecord       `json:"logins,omitempty"`
	Devices      []DeviceRecord      `json:"devices,omitempty"`
	Connections  []ConnectionRecord  `json:"network_connections,omitempty"`
	PriorCases   []PriorCase         `json:"prior_cases,omitempty"`
	Completeness DataCompleteness    `json:"data_completeness"`
}
