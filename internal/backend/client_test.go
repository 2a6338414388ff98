package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStartSession(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody sessionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"sessionId":"srv-1","status":"started","message":"session created"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL).WithToken("secret")
	ack, err := client.StartSession(context.Background(), "session-1", "user@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/chat/start" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody.SessionID != "session-1" || gotBody.UserID != "user@example.com" {
		t.Fatalf("unexpected request body %+v", gotBody)
	}
	if ack.SessionID != "srv-1" {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestSendMessage_AcceptedIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"response":"Cloning repository..."}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).SendMessage(context.Background(), ChatRequest{Message: "analyze"})
	if err != nil {
		t.Fatalf("202 must not be treated as failure: %v", err)
	}
	if resp.Text() != "Cloning repository..." {
		t.Fatalf("unexpected text %q", resp.Text())
	}
}

func TestChatResponse_TextFieldFallback(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"primary", `{"response":"from response"}`, "from response"},
		{"answer", `{"answer":"from answer"}`, "from answer"},
		{"nested", `{"data":{"response":"from data"}}`, "from data"},
		{"primary wins", `{"response":"a","answer":"b"}`, "a"},
		{"empty", `{}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp ChatResponse
			if err := json.Unmarshal([]byte(tc.body), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := resp.Text(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFetchFileList_NamedField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("repoUrl"); got != "https://github.com/acme/widget" {
			t.Errorf("unexpected repoUrl %q", got)
		}
		_, _ = w.Write([]byte(`{"files":["src/A.java","src/B.java"]}`))
	}))
	defer server.Close()

	files, err := NewClient(server.URL).FetchFileList(context.Background(), "https://github.com/acme/widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 || files[0] != "src/A.java" {
		t.Fatalf("unexpected files %v", files)
	}
}

func TestFetchFileList_BarePayloadFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["pom.xml","README.md"]`))
	}))
	defer server.Close()

	files, err := NewClient(server.URL).FetchFileList(context.Background(), "repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 || files[1] != "README.md" {
		t.Fatalf("unexpected files %v", files)
	}
}

func TestErrorBodyExtraction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"repository not found"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).SendMessage(context.Background(), ChatRequest{Message: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "repository not found"; !contains(err.Error(), want) {
		t.Fatalf("expected %q in error, got %q", want, err.Error())
	}
}

func TestTransportErrorIsWrapped(t *testing.T) {
	client := NewClient("http://127.0.0.1:1") // nothing listens here
	_, err := client.StartSession(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error")
	}
	if !contains(err.Error(), "cannot reach analysis backend") {
		t.Fatalf("expected transport wrap, got %q", err.Error())
	}
}

func TestTimeouts_InitiationShorterThanQuery(t *testing.T) {
	client := NewClient(DefaultBaseURL)
	if client.startTimeout >= client.queryTimeout {
		t.Fatalf("initiation timeout (%v) must be shorter than query timeout (%v)", client.startTimeout, client.queryTimeout)
	}

	client.WithTimeouts(time.Second, 2*time.Second)
	if client.startTimeout != time.Second || client.queryTimeout != 2*time.Second {
		t.Fatalf("timeout override not applied: %v / %v", client.startTimeout, client.queryTimeout)
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
