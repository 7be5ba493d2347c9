package serve

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBroker_DeliversReload(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", b.ClientCount())
	}

	b.NotifyReload()
	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: reload") {
			t.Errorf("msg = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBroker_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	b.Unsubscribe(ch)
	if _, open := <-ch; open {
		t.Error("channel should be closed after unsubscribe")
	}
	if b.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", b.ClientCount())
	}
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	b.Close()
	b.Close()
	if _, open := <-ch; open {
		t.Error("channel should be closed after broker close")
	}
	// Late subscribers get an already-closed channel.
	late := b.Subscribe()
	if _, open := <-late; open {
		t.Error("post-close subscription should be closed")
	}
}

func TestRouter_ServesOutputFiles(t *testing.T) {
	out := t.TempDir()
	if err := os.WriteFile(filepath.Join(out, "index.html"), []byte("<h1>hi</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewBroker()
	defer b.Close()
	r := NewRouter(out, b)

	req := httptest.NewRequest("GET", "/index.html", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hi") {
		t.Errorf("body = %q", rec.Body.String())
	}
}
