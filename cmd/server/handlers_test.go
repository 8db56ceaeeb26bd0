package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"fragsim.gg/internal/protocol"
	"fragsim.gg/internal/sim/catalogs"
	"fragsim.gg/internal/sim/manager"
	"fragsim.gg/internal/sim/tuning"
	"fragsim.gg/internal/transport/ws"
)

func newTestAPI(t *testing.T) (*api, *httptest.Server) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	mgr := manager.New(catalogs.Defaults(), tuning.Defaults(), logger)
	a := &api{
		mgr:    mgr,
		stream: ws.NewServer(mgr, logger),
		logger: logger,
	}
	mux := http.NewServeMux()
	a.routes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return a, ts
}

func createBody(seed int64) []byte {
	type player struct {
		ID    int    `json:"id"`
		Name  string `json:"name"`
		Agent string `json:"agent"`
		Team  string `json:"team"`

		Aim      float64 `json:"aim"`
		Headshot float64 `json:"headshot"`
		Movement float64 `json:"movement"`
		Utility  float64 `json:"utility"`
	}
	attackers := []string{"JETT", "SOVA", "OMEN", "SAGE", "RAZE"}
	defenders := []string{"PHOENIX", "BREACH", "VIPER", "CYPHER", "NEON"}

	var players []player
	for i, agent := range attackers {
		players = append(players, player{ID: i + 1, Name: agent, Agent: agent, Team: "ATTACKERS",
			Aim: 0.7, Headshot: 0.4, Movement: 0.6, Utility: 0.5})
	}
	for i, agent := range defenders {
		players = append(players, player{ID: i + 6, Name: agent, Agent: agent, Team: "DEFENDERS",
			Aim: 0.65, Headshot: 0.35, Movement: 0.6, Utility: 0.5})
	}
	b, _ := json.Marshal(map[string]any{"seed": seed, "players": players})
	return b
}

func postJSON(t *testing.T, url string, body []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, b
}

func getJSON(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, b
}

func createSim(t *testing.T, ts *httptest.Server, seed int64) protocol.StateMsg {
	t.Helper()
	resp, body := postJSON(t, ts.URL+"/v1/simulations", createBody(seed))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d: %s", resp.StatusCode, body)
	}
	var st protocol.StateMsg
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func TestCreate_RejectsInvalidBody(t *testing.T) {
	_, ts := newTestAPI(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"empty object", "{}"},
		{"empty roster", `{"players":[]}`},
		{"bad team", `{"players":[{"id":1,"agent":"JETT","team":"SPECTATORS"}]}`},
	}
	for _, tc := range cases {
		resp, body := postJSON(t, ts.URL+"/v1/simulations", []byte(tc.body))
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status %d, want 400: %s", tc.name, resp.StatusCode, body)
		}
		var em protocol.ErrorMsg
		if err := json.Unmarshal(body, &em); err != nil {
			t.Fatalf("%s: decode error: %v", tc.name, err)
		}
		if !protocol.IsKnownCode(em.Code) || em.Code == "" {
			t.Fatalf("%s: unexpected code %q", tc.name, em.Code)
		}
	}
}

func TestCreate_UnknownAgentMapsToRosterError(t *testing.T) {
	_, ts := newTestAPI(t)

	body := []byte(`{"players":[
		{"id":1,"agent":"NOBODY","team":"ATTACKERS"},
		{"id":2,"agent":"JETT","team":"DEFENDERS"}
	]}`)
	resp, b := postJSON(t, ts.URL+"/v1/simulations", body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400: %s", resp.StatusCode, b)
	}
	var em protocol.ErrorMsg
	if err := json.Unmarshal(b, &em); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if em.Code != protocol.ErrInvalidRoster {
		t.Fatalf("code %q, want %q", em.Code, protocol.ErrInvalidRoster)
	}
}

func TestLifecycle_CreateAdvanceState(t *testing.T) {
	_, ts := newTestAPI(t)
	st := createSim(t, ts, 42)
	if st.Phase.Kind != "NOT_STARTED" {
		t.Fatalf("fresh phase = %q", st.Phase.Kind)
	}

	resp, body := postJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/advance", []byte(`{"mode":"round"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advance: status %d: %s", resp.StatusCode, body)
	}
	var adv struct {
		State  protocol.StateMsg   `json:"state"`
		Events []protocol.EventMsg `json:"events"`
	}
	if err := json.Unmarshal(body, &adv); err != nil {
		t.Fatalf("decode advance: %v", err)
	}
	if len(adv.Events) == 0 {
		t.Fatalf("advance round returned no events")
	}
	sawRoundEnd := false
	for _, e := range adv.Events {
		if e.Kind == "RoundEnd" {
			sawRoundEnd = true
		}
	}
	if !sawRoundEnd {
		t.Fatalf("no RoundEnd event in %d events", len(adv.Events))
	}

	resp, body = getJSON(t, ts.URL+"/v1/simulations/"+st.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("state: status %d: %s", resp.StatusCode, body)
	}
	var got protocol.StateMsg
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if got.TickCount == 0 {
		t.Fatalf("tick count still zero after a round")
	}
}

func TestAdvance_InvalidMode(t *testing.T) {
	_, ts := newTestAPI(t)
	st := createSim(t, ts, 1)

	resp, body := postJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/advance", []byte(`{"mode":"jump"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400: %s", resp.StatusCode, body)
	}
	var em protocol.ErrorMsg
	if err := json.Unmarshal(body, &em); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if em.Code != protocol.ErrInvalidMode {
		t.Fatalf("code %q, want %q", em.Code, protocol.ErrInvalidMode)
	}
}

func TestState_UnknownSimulation(t *testing.T) {
	_, ts := newTestAPI(t)

	resp, body := getJSON(t, ts.URL+"/v1/simulations/00000000-0000-0000-0000-000000000000")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404: %s", resp.StatusCode, body)
	}
	var em protocol.ErrorMsg
	if err := json.Unmarshal(body, &em); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if em.Code != protocol.ErrSimNotFound {
		t.Fatalf("code %q, want %q", em.Code, protocol.ErrSimNotFound)
	}
}

func TestControl_PauseAndSpeed(t *testing.T) {
	_, ts := newTestAPI(t)
	st := createSim(t, ts, 5)

	resp, body := postJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/control", []byte(`{"action":"pause"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pause: status %d: %s", resp.StatusCode, body)
	}
	var got protocol.StateMsg
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Mode != "PAUSED" {
		t.Fatalf("mode %q after pause", got.Mode)
	}

	resp, body = postJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/control", []byte(`{"action":"set_speed","speed":3}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set_speed: status %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.PlaybackSpeed != 3 || got.Mode != "FAST_FORWARD" {
		t.Fatalf("speed %v mode %q after set_speed", got.PlaybackSpeed, got.Mode)
	}
}

func TestEvents_FilterByKind(t *testing.T) {
	_, ts := newTestAPI(t)
	st := createSim(t, ts, 42)
	postJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/advance", []byte(`{"mode":"match"}`))

	resp, body := getJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/events?kinds=RoundEnd")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events: status %d: %s", resp.StatusCode, body)
	}
	var got struct {
		Events []protocol.EventMsg `json:"events"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Events) == 0 {
		t.Fatalf("no RoundEnd events after full match")
	}
	for _, e := range got.Events {
		if e.Kind != "RoundEnd" {
			t.Fatalf("filter leaked kind %q", e.Kind)
		}
	}
}

func TestCheckpointEndpoints(t *testing.T) {
	_, ts := newTestAPI(t)
	st := createSim(t, ts, 9)
	postJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/advance", []byte(`{"mode":"ticks","ticks":20}`))

	resp, body := postJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/checkpoints", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkpoint: status %d: %s", resp.StatusCode, body)
	}
	var cp protocol.CheckpointMsg
	if err := json.Unmarshal(body, &cp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	postJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/advance", []byte(`{"mode":"ticks","ticks":50}`))

	restore := fmt.Sprintf(`{"tick":%d}`, cp.Tick)
	resp, body = postJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/restore", []byte(restore))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("restore: status %d: %s", resp.StatusCode, body)
	}
	var got protocol.StateMsg
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TickCount != cp.Tick {
		t.Fatalf("restored tick %d, want %d", got.TickCount, cp.Tick)
	}

	resp, body = postJSON(t, ts.URL+"/v1/simulations/"+st.ID+"/restore", []byte(`{"tick":999999}`))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("restore unknown: status %d: %s", resp.StatusCode, body)
	}
	var em protocol.ErrorMsg
	if err := json.Unmarshal(body, &em); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if em.Code != protocol.ErrCheckpointNotFound {
		t.Fatalf("code %q, want %q", em.Code, protocol.ErrCheckpointNotFound)
	}
}

func TestDeleteAndListEndpoints(t *testing.T) {
	_, ts := newTestAPI(t)
	st := createSim(t, ts, 3)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/simulations/"+st.ID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}

	resp2, body := getJSON(t, ts.URL+"/v1/simulations")
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("list: status %d", resp2.StatusCode)
	}
	var list protocol.SimListMsg
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.IDs) != 0 {
		t.Fatalf("list not empty after delete: %v", list.IDs)
	}
}
