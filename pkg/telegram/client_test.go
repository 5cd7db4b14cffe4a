package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestClientSendMessage(t *testing.T) {
	const expectedURL = "http://tg.test/bottest-token/sendMessage"
	respBody := `{"ok":true,"result":{"message_id":101}}`

	var capturedURL string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload["chat_id"] != "-100123" {
			t.Fatalf("unexpected chat_id %q", payload["chat_id"])
		}
		if payload["text"] != "Новый заказ ORD-00042" {
			t.Fatalf("unexpected text %q", payload["text"])
		}
		if payload["parse_mode"] != parseModeHTML {
			t.Fatalf("unexpected parse_mode %q", payload["parse_mode"])
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("test-token", WithBaseURL("http://tg.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	messageID, err := client.SendMessage(context.Background(), "-100123", "Новый заказ ORD-00042")
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if messageID != 101 {
		t.Fatalf("unexpected message id %d", messageID)
	}
}

func TestClientSendMessageAPIError(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"ok":false,"description":"Bad Request: chat not found"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("test-token", WithBaseURL("http://tg.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.SendMessage(context.Background(), "-100123", "hello"); err == nil {
		t.Fatal("expected error when telegram responds ok=false")
	}
}

func TestClientSendMessageHTTPError(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Body:       io.NopCloser(strings.NewReader(`{"ok":false,"description":"Too Many Requests"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("test-token", WithBaseURL("http://tg.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.SendMessage(context.Background(), "-100123", "hello"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient("   "); err == nil {
		t.Fatal("expected error for empty bot token")
	}
}
