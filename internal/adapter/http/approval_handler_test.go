package http

import (
	"encoding/json"
	stdhttp "net/http"
	"strings"
	"testing"

	"sacco-workflow/internal/domain/workflow"
	"sacco-workflow/internal/usecase/engine"
)

var adminID = strings.Repeat("0", 32)

func TestDecide(t *testing.T) {
	a := newTestAPI(t)
	app := a.submit(t, a.create(t, memberA, "1000"))
	path := "/applications/" + app.ApplicationID + "/decisions"

	// loan committee may not decide the chairperson's stage
	rec := a.do(t, stdhttp.MethodPost, path, committee, workflow.RoleLoanCommittee,
		map[string]any{"outcome": "approve", "version": app.Version})
	expectStatus(t, rec, stdhttp.StatusForbidden)

	rec = a.do(t, stdhttp.MethodPost, path, chairID, workflow.RoleChairperson,
		map[string]any{"outcome": "maybe", "version": app.Version})
	expectStatus(t, rec, stdhttp.StatusUnprocessableEntity)
	if er := decodeErr(t, rec); !containsFieldMsg(er.Details, "outcome", "must be one of") {
		t.Fatalf("unexpected details: %+v", er.Details)
	}

	rec = a.do(t, stdhttp.MethodPost, path, chairID, workflow.RoleChairperson,
		map[string]any{"outcome": "approve", "remarks": "savings history ok", "version": app.Version})
	expectStatus(t, rec, stdhttp.StatusOK)
	next := decodeApp(t, rec)
	if next.AwaitingRole != string(workflow.RoleLoanCommittee) || next.Version != app.Version+1 {
		t.Fatalf("unexpected dto: %+v", next)
	}

	// replaying the old version loses
	rec = a.do(t, stdhttp.MethodPost, path, committee, workflow.RoleLoanCommittee,
		map[string]any{"outcome": "approve", "version": app.Version})
	expectStatus(t, rec, stdhttp.StatusConflict)
	if er := decodeErr(t, rec); er.Reason != workflow.ReasonStaleVersion {
		t.Fatalf("reason = %q", er.Reason)
	}

	rec = a.do(t, stdhttp.MethodPost, path, committee, workflow.RoleLoanCommittee,
		map[string]any{"outcome": "return", "version": next.Version})
	expectStatus(t, rec, stdhttp.StatusUnprocessableEntity)
	if er := decodeErr(t, rec); er.Reason != workflow.ReasonRemarksRequired {
		t.Fatalf("reason = %q", er.Reason)
	}

	rec = a.do(t, stdhttp.MethodGet, path, memberA, workflow.RoleMember, nil)
	expectStatus(t, rec, stdhttp.StatusOK)
	var body struct {
		Decisions []engine.DecisionDTO `json:"decisions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(body.Decisions) != 1 || body.Decisions[0].DeciderID != chairID ||
		body.Decisions[0].StageName != "chairperson_review" || body.Decisions[0].Remarks != "savings history ok" {
		t.Fatalf("unexpected decisions: %+v", body.Decisions)
	}
}

func TestDecide_FullApprovalHandsOffDisbursement(t *testing.T) {
	a := newTestAPI(t)
	app := a.approveAll(t, a.submit(t, a.create(t, memberA, "2500")))

	if app.State != "approved" || app.AwaitingRole != "" || app.ApprovedAt == nil || app.DisbursementRequestedAt == nil {
		t.Fatalf("unexpected dto: %+v", app)
	}
	if len(a.ledger.Disbursements) != 1 || a.ledger.Disbursements[0] != app.ApplicationID {
		t.Fatalf("disbursements = %v", a.ledger.Disbursements)
	}
}

func TestQueue(t *testing.T) {
	a := newTestAPI(t)
	first := a.submit(t, a.create(t, memberA, "1000"))
	_ = a.submit(t, a.create(t, memberB, "800"))

	rec := a.do(t, stdhttp.MethodGet, "/queues/chairperson", chairID, workflow.RoleChairperson, nil)
	expectStatus(t, rec, stdhttp.StatusOK)
	var body struct {
		Role         string                  `json:"role"`
		Applications []engine.ApplicationDTO `json:"applications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if body.Role != "chairperson" || len(body.Applications) != 2 || body.Applications[0].ApplicationID != first.ApplicationID {
		t.Fatalf("unexpected queue: %+v", body)
	}

	expectStatus(t, a.do(t, stdhttp.MethodGet, "/queues/loan_committee", chairID, workflow.RoleChairperson, nil), stdhttp.StatusForbidden)

	rec = a.do(t, stdhttp.MethodGet, "/queues/loan_committee", adminID, workflow.RoleSystemAdmin, nil)
	expectStatus(t, rec, stdhttp.StatusOK)
	body.Applications = nil
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Applications) != 0 {
		t.Fatalf("loan committee queue should be empty: %+v", body.Applications)
	}

	rec = a.do(t, stdhttp.MethodGet, "/queues/treasurer", adminID, workflow.RoleSystemAdmin, nil)
	expectStatus(t, rec, stdhttp.StatusUnprocessableEntity)
	if er := decodeErr(t, rec); er.Reason != workflow.ReasonUnknownRole {
		t.Fatalf("reason = %q", er.Reason)
	}
}
