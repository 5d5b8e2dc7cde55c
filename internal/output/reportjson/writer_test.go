package reportjson

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"fraudgraph/pkg/models"
)

func TestWriterEmitsOneLinePerInvestigation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "investigations.jsonl")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	reports := []*models.Investigation{
		{InvestigationID: "inv-1", CaseID: "case-1"},
		{InvestigationID: "inv-2", CaseID: "case-2"},
	}
	if err := w.WriteInvestigations(reports); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	var caseIDs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var inv models.Investigation
		if err := json.Unmarshal(scanner.Bytes(), &inv); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		caseIDs = append(caseIDs, inv.CaseID)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(caseIDs) != 2 || caseIDs[0] != "case-1" || caseIDs[1] != "case-2" {
		t.Fatalf("unexpected output lines: %v", caseIDs)
	}
}
