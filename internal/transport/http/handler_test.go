package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/infra/memory"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const testSecret = "test-secret"

type testServer struct {
	*httptest.Server
	demo   memory.Demo
	auth   *Authenticator
	hub    *app.StandingsHub
	bus    *memory.EventBus
	cancel context.CancelFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	demo, err := memory.SeedDemo(store, time.Now())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	bus := memory.NewEventBus()
	collector := metrics.New()
	arena := app.NewArenaService(store, app.WithPublisher(bus), app.WithMetrics(collector))
	hub := app.NewStandingsHub(memory.NewStandingsRepository(arena, time.Minute), nil)
	auth := NewAuthenticator(testSecret)

	handler := NewHandler(arena, hub, auth, WithMetrics(collector, collector.Handler()))
	ts := &testServer{Server: httptest.NewServer(handler.Routes()), demo: demo, auth: auth, hub: hub, bus: bus}
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := ts.auth.Sign(userID, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (ts *testServer) do(t *testing.T, method, path string, userID int64, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+ts.token(t, userID))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func decodeBody[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func TestBuyAndSolveOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	card := ts.demo.CardIDs[3] // Geography for 10, answer Tokyo

	resp, data := ts.do(t, http.MethodPost, "/api/v1/selected-problems", 1, buyRequest{ProblemCardID: card})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("buy: status %d body %s", resp.StatusCode, data)
	}
	bought := decodeBody[buyResponse](t, data)

	resp, data = ts.do(t, http.MethodGet, "/api/v1/selected-problems", 1, nil)
	list := decodeBody[domain.SelectedProblemList](t, data)
	if resp.StatusCode != http.StatusOK || len(list.Items) != 1 || list.MaxAttempts != 3 {
		t.Fatalf("list: status %d body %s", resp.StatusCode, data)
	}

	path := "/api/v1/selected-problems/" + itoa(bought.SelectedProblemID) + "/reward"
	resp, data = ts.do(t, http.MethodGet, path, 1, nil)
	if reward := decodeBody[rewardResponse](t, data); resp.StatusCode != http.StatusOK || reward.PossibleReward != 20 {
		t.Fatalf("reward: status %d body %s", resp.StatusCode, data)
	}

	resp, data = ts.do(t, http.MethodPost, "/api/v1/submissions", 1, submitRequest{SelectedProblemID: bought.SelectedProblemID, Answer: " tokyo "})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit: status %d body %s", resp.StatusCode, data)
	}
	res := decodeBody[app.SubmissionResult](t, data)
	if res.Verdict != domain.VerdictAccepted || res.Reward != 20 || res.Balance != 110 || res.SubmissionID == 0 {
		t.Fatalf("unexpected submission result %+v", res)
	}

	resp, data = ts.do(t, http.MethodGet, "/api/v1/contestant", 1, nil)
	if info := decodeBody[domain.ContestantInfo](t, data); resp.StatusCode != http.StatusOK || info.Points != 110 || info.ProblemsCurrent != 0 {
		t.Fatalf("info: status %d body %s", resp.StatusCode, data)
	}

	resp, data = ts.do(t, http.MethodGet, "/api/v1/contestant/logs?limit=2", 1, nil)
	page := decodeBody[domain.LogPage](t, data)
	if resp.StatusCode != http.StatusOK || page.Total != 4 || len(page.Entries) != 2 || page.Entries[1].Content != "Answer accepted." {
		t.Fatalf("logs: status %d body %s", resp.StatusCode, data)
	}
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)
	card := ts.demo.CardIDs[0]

	resp, _ := ts.do(t, http.MethodGet, "/api/v1/contestant", 0, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodGet, "/api/v1/contestant", 99, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for user without contestant, got %d", resp.StatusCode)
	}

	resp, data := ts.do(t, http.MethodPost, "/api/v1/selected-problems", 1, buyRequest{ProblemCardID: card})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("buy: %d %s", resp.StatusCode, data)
	}
	spID := decodeBody[buyResponse](t, data).SelectedProblemID

	resp, data = ts.do(t, http.MethodPost, "/api/v1/selected-problems", 1, buyRequest{ProblemCardID: card})
	if resp.StatusCode != http.StatusConflict || decodeBody[errorPayload](t, data).Error != "already_exists" {
		t.Fatalf("expected 409, got %d %s", resp.StatusCode, data)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/submissions", 2, submitRequest{SelectedProblemID: spID, Answer: "6"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign card, got %d", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/submissions", 1, submitRequest{SelectedProblemID: spID, Answer: strings.Repeat("x", 40)})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for long answer, got %d", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/selected-problems", 1, map[string]any{"cardId": "nope"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/selected-problems", 1, buyRequest{ProblemCardID: 424242})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown card, got %d", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodGet, "/api/v1/selected-problems/abc/reward", 1, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}
}

func TestRejectsForgedToken(t *testing.T) {
	ts := newTestServer(t)
	forged, err := NewAuthenticator("other-secret").Sign(1, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/contestant", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	if _, err := ts.auth.Verify(forged); err == nil {
		t.Fatalf("expected verification failure")
	}
	expired, _ := ts.auth.Sign(1, -time.Minute)
	if _, err := ts.auth.Verify(expired); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestStandingsCacheHeaderAndRequestID(t *testing.T) {
	ts := newTestServer(t)
	path := "/api/v1/contests/" + itoa(ts.demo.ContestID) + "/standings"

	resp, data := ts.do(t, http.MethodGet, path, 0, nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("X-Cache") != "MISS" {
		t.Fatalf("first read: %d %s %q", resp.StatusCode, data, resp.Header.Get("X-Cache"))
	}
	if _, err := uuid.Parse(resp.Header.Get(requestIDHeader)); err != nil {
		t.Fatalf("expected uuid request id, got %q", resp.Header.Get(requestIDHeader))
	}
	st := decodeBody[domain.Standings](t, data)
	if len(st.Entries) != 2 {
		t.Fatalf("expected two contestants, got %+v", st)
	}

	resp, _ = ts.do(t, http.MethodGet, path, 0, nil)
	if resp.Header.Get("X-Cache") != "HIT" {
		t.Fatalf("expected cache hit, got %q", resp.Header.Get("X-Cache"))
	}

	resp, _ = ts.do(t, http.MethodGet, "/api/v1/contests/999/standings", 0, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown contest, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/selected-problems", 1, buyRequest{ProblemCardID: ts.demo.CardIDs[0]})

	resp, data := ts.do(t, http.MethodGet, "/metrics", 0, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %d", resp.StatusCode)
	}
	for _, want := range []string{
		`gridarena_purchases_total{result="ok"} 1`,
		`gridarena_http_requests_total{method="POST",route="POST /api/v1/selected-problems",status="201"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestWebSocketStandingsFeed(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe, err := ts.bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()
	go func() {
		for ev := range events {
			ts.hub.Handle(ctx, ev)
		}
	}()

	u := "ws" + ts.URL[len("http"):] + "/ws/standings?contestId=" + itoa(ts.demo.ContestID)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readStandings(t, conn)
	if len(initial.Entries) != 2 || initial.Entries[0].Points != 100 {
		t.Fatalf("unexpected initial standings %+v", initial)
	}

	resp, data := ts.do(t, http.MethodPost, "/api/v1/selected-problems", 2, buyRequest{ProblemCardID: ts.demo.CardIDs[8]})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("buy: %d %s", resp.StatusCode, data)
	}

	update := readStandings(t, conn)
	if update.Entries[1].Name != "bob" || update.Entries[1].Points != 70 {
		t.Fatalf("expected bob at 70 points, got %+v", update.Entries)
	}
}

func TestWebSocketRejectsBadContest(t *testing.T) {
	ts := newTestServer(t)
	for _, q := range []string{"", "?contestId=x", "?contestId=999"} {
		resp, err := http.Get(ts.URL + "/ws/standings" + q)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%q: expected 400 or 404, got %d", q, resp.StatusCode)
		}
	}
}

func readStandings(t *testing.T, conn *websocket.Conn) domain.Standings {
	t.Helper()
	var msg struct {
		Type    string           `json:"type"`
		Payload domain.Standings `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "standings" {
		t.Fatalf("expected standings message, got %s", msg.Type)
	}
	return msg.Payload
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestQuizFieldOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	card := ts.demo.CardIDs[4]

	resp, data := ts.do(t, http.MethodPost, "/api/v1/selected-problems", 1, buyRequest{ProblemCardID: card})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("buy: %d %s", resp.StatusCode, data)
	}

	resp, data = ts.do(t, http.MethodGet, "/api/v1/quiz-field", 1, nil)
	view := decodeBody[domain.QuizFieldView](t, data)
	if resp.StatusCode != http.StatusOK || view.Rows != 3 || view.Columns != 3 || len(view.Cards) != 9 {
		t.Fatalf("quiz field: status %d body %s", resp.StatusCode, data)
	}
	cv := view.Cards[4]
	if cv.ProblemCardID != card || cv.Row != 1 || cv.Column != 1 || cv.CategoryName != "Geography" ||
		cv.Status != domain.CardSolving || cv.IsOpenForBuy {
		t.Fatalf("bought card: %+v", cv)
	}
	if !view.Cards[0].IsOpenForBuy || view.Cards[0].Status != domain.CardOpen {
		t.Fatalf("free card: %+v", view.Cards[0])
	}
	if !strings.Contains(string(data), `"isOpenForBuy"`) {
		t.Fatalf("expected camelCase fields, got %s", data)
	}

	resp, _ = ts.do(t, http.MethodGet, "/api/v1/quiz-field", 0, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestContestSubmissionsOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	contest := itoa(ts.demo.ContestID)

	resp, data := ts.do(t, http.MethodPost, "/api/v1/selected-problems", 2, buyRequest{ProblemCardID: ts.demo.CardIDs[0]})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("buy: %d %s", resp.StatusCode, data)
	}
	spID := decodeBody[buyResponse](t, data).SelectedProblemID
	for _, answer := range []string{"7", "6"} {
		if resp, data := ts.do(t, http.MethodPost, "/api/v1/submissions", 2, submitRequest{SelectedProblemID: spID, Answer: answer}); resp.StatusCode != http.StatusCreated {
			t.Fatalf("submit %s: %d %s", answer, resp.StatusCode, data)
		}
	}

	resp, data = ts.do(t, http.MethodGet, "/api/v1/contests/"+contest+"/submissions", memory.DemoOrganizerID, nil)
	feed := decodeBody[domain.SubmissionFeed](t, data)
	if resp.StatusCode != http.StatusOK || len(feed.Submissions) != 2 || feed.Name != "Demo Arena" {
		t.Fatalf("feed: status %d body %s", resp.StatusCode, data)
	}
	if feed.Submissions[0].Verdict != domain.VerdictAccepted || feed.Submissions[1].Verdict != domain.VerdictWrong {
		t.Fatalf("expected newest first, got %+v", feed.Submissions)
	}

	resp, data = ts.do(t, http.MethodGet, "/api/v1/contests/"+contest+"/submissions?mine=true&limit=1", 1, nil)
	if mine := decodeBody[domain.SubmissionFeed](t, data); resp.StatusCode != http.StatusOK || len(mine.Submissions) != 0 || mine.Limit != 1 {
		t.Fatalf("alice has none: status %d body %s", resp.StatusCode, data)
	}

	resp, _ = ts.do(t, http.MethodGet, "/api/v1/contests/"+contest+"/submissions?mine=maybe", 1, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad flag, got %d", resp.StatusCode)
	}
	resp, _ = ts.do(t, http.MethodGet, "/api/v1/contests/"+contest+"/submissions", 99, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider, got %d", resp.StatusCode)
	}
}

func TestRegisterContestantOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	path := "/api/v1/contests/" + itoa(ts.demo.ContestID) + "/contestants"

	resp, data := ts.do(t, http.MethodPost, path, memory.DemoOrganizerID, registerRequest{UserID: 3, Name: "carol"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: status %d body %s", resp.StatusCode, data)
	}
	if reg := decodeBody[registerResponse](t, data); reg.ContestantID == 0 || reg.Points != 100 {
		t.Fatalf("unexpected registration %s", data)
	}

	resp, data = ts.do(t, http.MethodGet, "/api/v1/contestant", 3, nil)
	if info := decodeBody[domain.ContestantInfo](t, data); resp.StatusCode != http.StatusOK || info.Points != 100 {
		t.Fatalf("new contestant info: status %d body %s", resp.StatusCode, data)
	}

	resp, _ = ts.do(t, http.MethodPost, path, 1, registerRequest{UserID: 4, Name: "dave"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a contestant, got %d", resp.StatusCode)
	}
	resp, data = ts.do(t, http.MethodPost, path, memory.DemoOrganizerID, registerRequest{UserID: 3, Name: "carol"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for a second registration, got %d %s", resp.StatusCode, data)
	}
	resp, _ = ts.do(t, http.MethodPost, path, memory.DemoOrganizerID, registerRequest{UserID: 4, Name: ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty name, got %d", resp.StatusCode)
	}
}
