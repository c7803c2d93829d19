//go:build integration

package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joelkehle/bizcase/internal/businesscase"
	"github.com/joelkehle/bizcase/internal/export"
	"github.com/joelkehle/bizcase/internal/finance"
	"github.com/joelkehle/bizcase/internal/llm"
	"github.com/joelkehle/bizcase/internal/report"
	"github.com/joelkehle/bizcase/internal/store"
)

const e2eOverview = `{"executiveSummary": "Fleet Telematics gives Acme Logistics live visibility of its trucks and recovers its investment early.",
 "marketAnalysis": {"overview": "European fleets are digitising.", "targetMarket": "Fleets of 20-200 trucks", "competition": "Samsara, Webfleet", "trends": ["Tachograph mandate"]}}`

const e2eRiskPlan = "```json\n" + `{"riskAssessment": {"summary": "Manageable.", "risks": [{"category": "Market", "description": "Slow adoption", "likelihood": "low", "impact": "MEDIUM", "mitigation": "Pilot"}]},
 "implementationTimeline": [{"phase": "Pilot", "duration": "3 months", "activities": ["Install"], "milestones": ["10 trucks"]}],
 "recommendations": ["Start the pilot"]}` + "\n```"

// fakeChatCompletions answers like an OpenAI-compatible endpoint. The first
// risk request gets a 503 so the retry path runs end to end.
func fakeChatCompletions(t *testing.T) (string, *int32) {
	t.Helper()
	var calls int32
	var riskCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) < 2 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		content := e2eOverview
		if !strings.HasPrefix(req.Messages[1].Content, "Write the executive summary") {
			if atomic.AddInt32(&riskCalls, 1) == 1 {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
				return
			}
			content = e2eRiskPlan
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
			"usage":   map[string]int{"prompt_tokens": 100, "completion_tokens": 50},
		})
	})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen llm: %v", err)
	}
	srv := &http.Server{Handler: mux}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return "http://" + ln.Addr().String(), &calls
}

func TestE2EGenerateStoreExport(t *testing.T) {
	llmURL, calls := fakeChatCompletions(t)

	caller := llm.NewOpenAICaller("openai", llmURL, "test-key", "gpt-4o-mini", 2048, 0.2, 10*time.Second)
	gen := report.NewGenerator(llm.NewExecutor(caller, 3, 10*time.Second), finance.DefaultAssumptions(), 5, 10)

	dbPath := filepath.Join(t.TempDir(), "reports.db")
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen api: %v", err)
	}
	apiSrv := &http.Server{Handler: NewServer(Options{Generator: gen, Store: st, Exporter: export.NewExporter(nil)})}
	go apiSrv.Serve(ln)
	defer apiSrv.Close()
	baseURL := "http://" + ln.Addr().String()

	in := businesscase.BusinessCaseData{
		ProjectName: "Fleet Telematics",
		CompanyName: "Acme Logistics",
		Country:     "Germany",
		Industry:    "Transportation",
		Financials:  businesscase.FinancialInputs{Capex: 250000, Opex: 60000, TimelineYears: 5},
		Customers:   businesscase.CustomerInputs{InitialCustomers: 40, GrowthRate: 25, ARPU: 199},
	}
	blob, _ := json.Marshal(in)
	resp, err := http.Post(baseURL+"/api/generate-report", "application/json", bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("POST /api/generate-report: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("generate returned %d: %s", resp.StatusCode, b)
	}
	var rep businesscase.ReportData
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Mode != businesscase.ReportModeComplete {
		t.Fatalf("mode = %s, failed = %v", rep.Mode, rep.FailedSections)
	}
	if rep.Provider != "openai" || rep.Model != "gpt-4o-mini" {
		t.Fatalf("provider/model = %s/%s", rep.Provider, rep.Model)
	}
	if rep.RiskAssessment.Risks[0].Likelihood != businesscase.LevelLow {
		t.Fatalf("likelihood not normalised: %q", rep.RiskAssessment.Risks[0].Likelihood)
	}
	if got := atomic.LoadInt32(calls); got != 3 {
		t.Fatalf("llm calls = %d, want 3 (one retry after 503)", got)
	}

	listResp, err := http.Get(baseURL + "/api/reports")
	if err != nil {
		t.Fatalf("GET /api/reports: %v", err)
	}
	defer listResp.Body.Close()
	var list struct {
		Reports []store.Summary `json:"reports"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Reports) != 1 || list.Reports[0].ID != rep.ID {
		t.Fatalf("list = %+v", list.Reports)
	}

	for _, f := range []export.Format{export.FormatDOCX, export.FormatXLSX, export.FormatHTML} {
		r, err := http.Get(baseURL + "/api/reports/" + rep.ID + "/export/" + string(f))
		if err != nil {
			t.Fatalf("export %s: %v", f, err)
		}
		b, _ := io.ReadAll(r.Body)
		r.Body.Close()
		if r.StatusCode != http.StatusOK || len(b) == 0 {
			t.Fatalf("export %s returned %d (%d bytes)", f, r.StatusCode, len(b))
		}
		if ct := r.Header.Get("Content-Type"); ct != f.ContentType() {
			t.Fatalf("export %s content type = %q", f, ct)
		}
	}

	// Reports survive a restart of the store.
	st.Close()
	reopened, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	again, err := reopened.Get(t.Context(), rep.ID)
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if again.ExecutiveSummary != rep.ExecutiveSummary {
		t.Fatal("executive summary changed after reopen")
	}
}
