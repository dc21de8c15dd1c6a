package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/smallbooks/bookkeeper/internal/accounts"
	"github.com/smallbooks/bookkeeper/internal/api"
	"github.com/smallbooks/bookkeeper/internal/audit"
	"github.com/smallbooks/bookkeeper/internal/bills"
	"github.com/smallbooks/bookkeeper/internal/importer"
	"github.com/smallbooks/bookkeeper/internal/ledger"
	"github.com/smallbooks/bookkeeper/internal/models"
	"github.com/smallbooks/bookkeeper/internal/money"
	"github.com/smallbooks/bookkeeper/internal/reconcile"
	"github.com/smallbooks/bookkeeper/internal/store"
)

const testActor = "books@test"

type testClient struct {
	server *httptest.Server
}

func setupTestServer(t *testing.T) *testClient {
	t.Helper()

	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "books.db"))
	if err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	rec, err := audit.Open(filepath.Join(dir, "audit.db"), nil)
	if err != nil {
		t.Fatalf("Failed to initialize audit store: %v", err)
	}
	t.Cleanup(func() {
		_ = rec.Close()
	})

	accountsDir := accounts.NewDirectory(st, rec)
	poster := ledger.NewPoster(st, rec)

	router := api.NewRouter(api.Deps{
		Store:     st,
		Audit:     rec,
		Accounts:  accountsDir,
		Poster:    poster,
		Bills:     bills.NewManager(st, poster, rec),
		Allocator: bills.NewAllocator(st, poster, rec),
		Reconcile: reconcile.NewEngine(st, accountsDir, rec),
		Importer:  importer.NewService(st, nil, rec),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testClient{server: server}
}

func (c *testClient) request(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	req.Header.Set("X-Actor", testActor)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}

	return resp
}

// requestRaw sends a non-JSON body, as the CSV import endpoint expects.
func (c *testClient) requestRaw(t *testing.T, method, path, contentType, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, c.server.URL+path, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("X-Actor", testActor)
	req.Header.Set("Content-Type", contentType)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d: %s", expected, resp.StatusCode, string(body))
	}
}

func (c *testClient) createAccount(t *testing.T, code, name, accType string) models.Account {
	t.Helper()

	resp := c.request(t, "POST", "/api/v1/accounts", models.CreateAccountRequest{
		Code: code, Name: name, Type: accType,
	})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)

	var result struct {
		Account models.Account `json:"account"`
	}
	decodeBody(t, resp, &result)
	return result.Account
}

func TestBookkeepingScenario(t *testing.T) {
	client := setupTestServer(t)

	var (
		checking models.Account
		payable  models.Account
		supplies models.Account
		utils    models.Account
		sales    models.Account
		vendorID int64
		billID   int64
	)

	t.Run("Health check", func(t *testing.T) {
		resp := client.request(t, "GET", "/health", nil)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusOK)
	})

	t.Run("Create accounts", func(t *testing.T) {
		checking = client.createAccount(t, "1010", "Business Checking", "")
		payable = client.createAccount(t, "2000", "Accounts Payable", "")
		supplies = client.createAccount(t, "6400", "Office Supplies", "")
		utils = client.createAccount(t, "6600", "Utilities", "")
		sales = client.createAccount(t, "4000", "Sales Revenue", "")

		// Types are inferred from the leading code digit.
		if checking.Type != models.AccountTypeAsset {
			t.Errorf("Checking type = %q, expected asset", checking.Type)
		}
		if payable.Type != models.AccountTypeLiability {
			t.Errorf("Payable type = %q, expected liability", payable.Type)
		}
		if sales.Type != models.AccountTypeRevenue {
			t.Errorf("Sales type = %q, expected revenue", sales.Type)
		}
	})

	t.Run("Lookup account by code", func(t *testing.T) {
		resp := client.request(t, "GET", "/api/v1/accounts/lookup?code=2000", nil)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusOK)

		var result struct {
			Account models.Account `json:"account"`
		}
		decodeBody(t, resp, &result)
		if result.Account.ID != payable.ID {
			t.Errorf("Lookup returned account %d, expected %d", result.Account.ID, payable.ID)
		}
	})

	t.Run("Create vendor", func(t *testing.T) {
		resp := client.request(t, "POST", "/api/v1/vendors", models.CreateVendorRequest{
			Name: "Acme Supplies", Contact: "billing@acme.test",
		})
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusCreated)

		var result struct {
			Vendor models.Vendor `json:"vendor"`
		}
		decodeBody(t, resp, &result)
		vendorID = result.Vendor.ID
		if vendorID == 0 {
			t.Fatal("Expected non-zero vendor ID")
		}
	})

	t.Run("Create bill posts its opening journal", func(t *testing.T) {
		builder := NewTestDataBuilder(vendorID, payable.ID)
		req := builder.Bill("2025-03-01",
			Line(supplies.ID, "2", "30.00"),
			Line(utils.ID, "", "40.00"),
		)

		resp := client.request(t, "POST", "/api/v1/bills", req)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusCreated)

		var result struct {
			Bill models.Bill `json:"bill"`
		}
		decodeBody(t, resp, &result)

		billID = result.Bill.ID
		if billID == 0 {
			t.Fatal("Expected non-zero bill ID")
		}
		if result.Bill.Status != models.BillStatusOpen {
			t.Errorf("Status = %q, expected open", result.Bill.Status)
		}
		if money.String(result.Bill.Total) != "100.00" {
			t.Errorf("Total = %s, expected 100.00", money.String(result.Bill.Total))
		}
		if result.Bill.JournalID == nil {
			t.Fatal("Expected an opening journal")
		}

		jresp := client.request(t, "GET", fmt.Sprintf("/api/v1/journals/%d", *result.Bill.JournalID), nil)
		defer jresp.Body.Close()
		expectStatus(t, jresp, http.StatusOK)

		var jresult struct {
			Journal models.Journal `json:"journal"`
		}
		decodeBody(t, jresp, &jresult)
		if jresult.Journal.Type != models.JournalTypePurchase {
			t.Errorf("Journal type = %q, expected purchase", jresult.Journal.Type)
		}
		if len(jresult.Journal.Lines) != 3 {
			t.Errorf("Expected 3 journal lines, got %d", len(jresult.Journal.Lines))
		}
	})

	t.Run("Partial payment", func(t *testing.T) {
		resp := client.request(t, "POST", fmt.Sprintf("/api/v1/bills/%d/payments", billID),
			Payment(checking.ID, "2025-03-05", "60.00"))
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusCreated)

		bresp := client.request(t, "GET", fmt.Sprintf("/api/v1/bills/%d", billID), nil)
		defer bresp.Body.Close()
		expectStatus(t, bresp, http.StatusOK)

		var result struct {
			Bill models.Bill `json:"bill"`
		}
		decodeBody(t, bresp, &result)
		if result.Bill.Status != models.BillStatusPartiallyPaid {
			t.Errorf("Status = %q, expected partially_paid", result.Bill.Status)
		}
		if money.String(result.Bill.PaidAmount) != "60.00" {
			t.Errorf("PaidAmount = %s, expected 60.00", money.String(result.Bill.PaidAmount))
		}
	})

	t.Run("Overpayment rejected", func(t *testing.T) {
		resp := client.request(t, "POST", fmt.Sprintf("/api/v1/bills/%d/payments", billID),
			Payment(checking.ID, "2025-03-06", "50.00"))
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnprocessableEntity {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("Expected status 422, got %d: %s", resp.StatusCode, string(body))
		}

		var errResp struct {
			Error string `json:"error"`
		}
		decodeBody(t, resp, &errResp)
		if errResp.Error != "overpayment_rejected" {
			t.Errorf("Error code = %q, expected overpayment_rejected", errResp.Error)
		}
	})

	t.Run("Settle the bill", func(t *testing.T) {
		resp := client.request(t, "POST", fmt.Sprintf("/api/v1/bills/%d/payments", billID),
			Payment(checking.ID, "2025-03-20", "40.00"))
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusCreated)

		bresp := client.request(t, "GET", fmt.Sprintf("/api/v1/bills/%d", billID), nil)
		defer bresp.Body.Close()

		var result struct {
			Bill models.Bill `json:"bill"`
		}
		decodeBody(t, bresp, &result)
		if result.Bill.Status != models.BillStatusPaid {
			t.Errorf("Status = %q, expected paid", result.Bill.Status)
		}
	})

	t.Run("Vendor refund leaves the paid amount", func(t *testing.T) {
		resp := client.request(t, "POST", fmt.Sprintf("/api/v1/bills/%d/refunds", billID),
			Refund(checking.ID, "2025-03-25", "15.00"))
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusCreated)

		bresp := client.request(t, "GET", fmt.Sprintf("/api/v1/bills/%d", billID), nil)
		defer bresp.Body.Close()

		var result struct {
			Bill models.Bill `json:"bill"`
		}
		decodeBody(t, bresp, &result)
		if result.Bill.Status != models.BillStatusPaid {
			t.Errorf("Status = %q, expected still paid after refund", result.Bill.Status)
		}
		if money.String(result.Bill.PaidAmount) != "100.00" {
			t.Errorf("PaidAmount = %s, expected 100.00 untouched by the refund", money.String(result.Bill.PaidAmount))
		}
	})

	t.Run("Account balances reflect the ledger", func(t *testing.T) {
		// Checking: 60.00 and 40.00 paid out, 15.00 refunded back in.
		resp := client.request(t, "GET", fmt.Sprintf("/api/v1/accounts/%d/balance", checking.ID), nil)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusOK)

		var balance struct {
			Balance string `json:"balance"`
		}
		decodeBody(t, resp, &balance)
		if balance.Balance != "-85.00" {
			t.Errorf("Checking balance = %s, expected -85.00", balance.Balance)
		}

		// Payable: 100.00 opened, 100.00 settled, 15.00 refund credit.
		presp := client.request(t, "GET", fmt.Sprintf("/api/v1/accounts/%d/balance", payable.ID), nil)
		defer presp.Body.Close()
		expectStatus(t, presp, http.StatusOK)

		decodeBody(t, presp, &balance)
		if balance.Balance != "15.00" {
			t.Errorf("Payable balance = %s, expected 15.00", balance.Balance)
		}
	})

	t.Run("Payable ledger lists every posting", func(t *testing.T) {
		resp := client.request(t, "GET", fmt.Sprintf("/api/v1/accounts/%d/ledger", payable.ID), nil)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusOK)

		var result struct {
			Lines []models.LedgerLine `json:"lines"`
		}
		decodeBody(t, resp, &result)
		// Opening credit, two payment debits, one refund credit.
		if len(result.Lines) != 4 {
			t.Errorf("Expected 4 ledger lines, got %d", len(result.Lines))
		}
	})

	t.Run("Manual journal and its reversal", func(t *testing.T) {
		req := models.CreateJournalRequest{
			EntryDate: "2025-03-28",
			Memo:      "cash sale",
			Lines: []models.CreateJournalLineRequest{
				{AccountID: checking.ID, Debit: "500.00"},
				{AccountID: sales.ID, Credit: "500.00"},
			},
		}
		resp := client.request(t, "POST", "/api/v1/journals", req)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusCreated)

		var result struct {
			Journal models.Journal `json:"journal"`
		}
		decodeBody(t, resp, &result)
		if result.Journal.Type != models.JournalTypeManual {
			t.Errorf("Journal type = %q, expected manual", result.Journal.Type)
		}

		rresp := client.request(t, "POST", fmt.Sprintf("/api/v1/journals/%d/reverse", result.Journal.ID), nil)
		defer rresp.Body.Close()
		expectStatus(t, rresp, http.StatusCreated)

		var reversal struct {
			Journal models.Journal `json:"journal"`
		}
		decodeBody(t, rresp, &reversal)
		if reversal.Journal.Type != models.JournalTypeReversal {
			t.Errorf("Reversal type = %q, expected reversal", reversal.Journal.Type)
		}
		if reversal.Journal.ReversesID == nil || *reversal.Journal.ReversesID != result.Journal.ID {
			t.Errorf("ReversesID = %v, expected %d", reversal.Journal.ReversesID, result.Journal.ID)
		}

		// The pair nets to zero, so the checking balance stands.
		bresp := client.request(t, "GET", fmt.Sprintf("/api/v1/accounts/%d/balance", checking.ID), nil)
		defer bresp.Body.Close()

		var balance struct {
			Balance string `json:"balance"`
		}
		decodeBody(t, bresp, &balance)
		if balance.Balance != "-85.00" {
			t.Errorf("Checking balance = %s after reversal, expected -85.00", balance.Balance)
		}
	})

	t.Run("Record and import statement lines", func(t *testing.T) {
		resp := client.request(t, "POST", "/api/v1/bank-transactions", models.CreateBankTransactionRequest{
			AccountID:   checking.ID,
			TxnDate:     "2025-03-04",
			Description: "counter deposit",
			Amount:      "200.00",
			Direction:   models.DirectionCredit,
			Reference:   "DEP-0001",
		})
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusCreated)

		csv := GenericCSV(
			"2025-03-05,ACME PAYMENT 1,-60.00,ACME-1",
			"2025-03-20,ACME PAYMENT 2,-40.00,ACME-2",
		)
		path := fmt.Sprintf("/api/v1/bank-transactions/import?account_id=%d&format=generic", checking.ID)

		iresp := client.requestRaw(t, "POST", path, "text/csv", csv)
		defer iresp.Body.Close()
		expectStatus(t, iresp, http.StatusOK)

		var result importer.Result
		decodeBody(t, iresp, &result)
		if result.Imported != 2 || result.Skipped != 0 {
			t.Errorf("Import = %+v, expected 2 imported", result)
		}

		// The same export twice changes nothing.
		iresp2 := client.requestRaw(t, "POST", path, "text/csv", csv)
		defer iresp2.Body.Close()
		expectStatus(t, iresp2, http.StatusOK)

		decodeBody(t, iresp2, &result)
		if result.Imported != 0 || result.Skipped != 2 {
			t.Errorf("Re-import = %+v, expected 2 skipped", result)
		}
	})

	t.Run("Reconcile the statement period", func(t *testing.T) {
		starting := "0.00"
		resp := client.request(t, "POST", "/api/v1/reconciliations", models.CreateSessionRequest{
			AccountID:        checking.ID,
			PeriodStart:      "2025-03-01",
			PeriodEnd:        "2025-03-31",
			StartingBalance:  &starting,
			StatementBalance: "90.00",
		})
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusCreated)

		var sresult struct {
			Session models.ReconciliationSession `json:"session"`
		}
		decodeBody(t, resp, &sresult)
		sessionID := sresult.Session.ID
		if sresult.Session.Status != models.SessionStatusDraft {
			t.Fatalf("Status = %q, expected draft", sresult.Session.Status)
		}

		// Clear every statement line in the period.
		lresp := client.request(t, "GET", fmt.Sprintf("/api/v1/bank-transactions?account_id=%d", checking.ID), nil)
		defer lresp.Body.Close()

		var txns struct {
			BankTransactions []models.BankTransaction `json:"bank_transactions"`
		}
		decodeBody(t, lresp, &txns)
		if len(txns.BankTransactions) != 3 {
			t.Fatalf("Expected 3 bank transactions, got %d", len(txns.BankTransactions))
		}

		var totals struct {
			Totals models.SessionTotals `json:"totals"`
		}
		for _, txn := range txns.BankTransactions {
			tresp := client.request(t, "POST", fmt.Sprintf("/api/v1/reconciliations/%d/toggle", sessionID),
				models.ToggleItemRequest{ItemType: models.ItemTypeBank, ItemID: txn.ID, Cleared: true})
			expectStatus(t, tresp, http.StatusOK)
			decodeBody(t, tresp, &totals)
			tresp.Body.Close()
		}

		// Deposit 200 in, payments 60 and 40 out.
		if money.String(totals.Totals.EndingBalance) != "100.00" {
			t.Errorf("EndingBalance = %s, expected 100.00", money.String(totals.Totals.EndingBalance))
		}
		if totals.Totals.Balanced {
			t.Error("Expected session out of balance against the 90.00 statement")
		}

		// Completing an unbalanced session is refused.
		cresp := client.request(t, "POST", fmt.Sprintf("/api/v1/reconciliations/%d/complete", sessionID), nil)
		if cresp.StatusCode != http.StatusUnprocessableEntity {
			body, _ := io.ReadAll(cresp.Body)
			cresp.Body.Close()
			t.Fatalf("Expected status 422, got %d: %s", cresp.StatusCode, string(body))
		}
		var errResp struct {
			Error string `json:"error"`
		}
		decodeBody(t, cresp, &errResp)
		cresp.Body.Close()
		if errResp.Error != "session_imbalanced" {
			t.Errorf("Error code = %q, expected session_imbalanced", errResp.Error)
		}

		// Fixing the statement figure balances the session.
		statement := "100.00"
		presp := client.request(t, "PATCH", fmt.Sprintf("/api/v1/reconciliations/%d", sessionID),
			models.UpdateSessionRequest{StatementBalance: &statement})
		expectStatus(t, presp, http.StatusOK)
		presp.Body.Close()

		cresp2 := client.request(t, "POST", fmt.Sprintf("/api/v1/reconciliations/%d/complete", sessionID), nil)
		defer cresp2.Body.Close()
		expectStatus(t, cresp2, http.StatusOK)

		decodeBody(t, cresp2, &sresult)
		if sresult.Session.Status != models.SessionStatusCompleted {
			t.Errorf("Status = %q, expected completed", sresult.Session.Status)
		}

		// The clearing set survives completion and reopening.
		iresp := client.request(t, "GET", fmt.Sprintf("/api/v1/reconciliations/%d/items", sessionID), nil)
		defer iresp.Body.Close()

		var items struct {
			Items []models.ReconciliationItem `json:"items"`
		}
		decodeBody(t, iresp, &items)
		if len(items.Items) != 3 {
			t.Errorf("Expected 3 cleared items, got %d", len(items.Items))
		}

		rresp := client.request(t, "POST", fmt.Sprintf("/api/v1/reconciliations/%d/reopen", sessionID), nil)
		defer rresp.Body.Close()
		expectStatus(t, rresp, http.StatusOK)

		decodeBody(t, rresp, &sresult)
		if sresult.Session.Status != models.SessionStatusReopened {
			t.Errorf("Status = %q, expected reopened", sresult.Session.Status)
		}
	})

	t.Run("Audit trail records the actor", func(t *testing.T) {
		resp := client.request(t, "GET", "/api/v1/audit/events?action=bill.create", nil)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusOK)

		var result struct {
			Events []audit.Event `json:"events"`
		}
		decodeBody(t, resp, &result)
		if len(result.Events) == 0 {
			t.Fatal("Expected at least one bill.create event")
		}
		if result.Events[0].Actor != testActor {
			t.Errorf("Actor = %q, expected %q", result.Events[0].Actor, testActor)
		}
	})

	t.Run("Stats summarize the books", func(t *testing.T) {
		resp := client.request(t, "GET", "/api/v1/stats", nil)
		defer resp.Body.Close()
		expectStatus(t, resp, http.StatusOK)

		var stats store.Stats
		decodeBody(t, resp, &stats)
		if stats.Accounts < 5 {
			t.Errorf("Accounts = %d, expected at least 5", stats.Accounts)
		}
		if stats.Bills != 1 {
			t.Errorf("Bills = %d, expected 1", stats.Bills)
		}
		if stats.BankTransactions != 3 {
			t.Errorf("BankTransactions = %d, expected 3", stats.BankTransactions)
		}
		if stats.OpenPayable != "0.00" {
			t.Errorf("OpenPayable = %s, expected 0.00 with the only bill paid", stats.OpenPayable)
		}
	})
}

func TestValidationErrorsOverHTTP(t *testing.T) {
	client := setupTestServer(t)

	t.Run("Unbalanced journal", func(t *testing.T) {
		cash := client.createAccount(t, "1000", "Cash", "")
		sales := client.createAccount(t, "4000", "Sales", "")

		req := models.CreateJournalRequest{
			EntryDate: "2025-03-01",
			Lines: []models.CreateJournalLineRequest{
				{AccountID: cash.ID, Debit: "100.00"},
				{AccountID: sales.ID, Credit: "99.00"},
			},
		}
		resp := client.request(t, "POST", "/api/v1/journals", req)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("Expected status 422, got %d", resp.StatusCode)
		}
		var errResp struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		decodeBody(t, resp, &errResp)
		if errResp.Error != "unbalanced_journal" {
			t.Errorf("Error code = %q, expected unbalanced_journal", errResp.Error)
		}
		if errResp.Description == "" {
			t.Error("Expected a human-readable error description")
		}
	})

	t.Run("Unknown account is 404", func(t *testing.T) {
		resp := client.request(t, "GET", "/api/v1/accounts/9999", nil)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", resp.StatusCode)
		}
	})

	t.Run("Duplicate account code is 409", func(t *testing.T) {
		client.createAccount(t, "1010", "Checking", "")
		resp := client.request(t, "POST", "/api/v1/accounts", models.CreateAccountRequest{
			Code: "1010", Name: "Checking Again",
		})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("Expected status 409, got %d", resp.StatusCode)
		}
	})

	t.Run("Malformed body is 400", func(t *testing.T) {
		resp := client.requestRaw(t, "POST", "/api/v1/vendors", "application/json", "{not json")
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", resp.StatusCode)
		}
	})
}
