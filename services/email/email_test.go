package emailsvc

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"testing"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/services/logger"
)

var conf = &core.Config{AppName: "Elimu", DefaultFromEmail: "noreply@elimu.test", SendgridApiKey: "key"}

func newExportMessage() *core.EmailMessage {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Address: "admin@elite.com"}},
		Subject: "Access codes",
		BodyStr: "codes attached",
	}
	msg.Attach([]byte("ACCESS CODES FOR MODULE: M1\n\nAbCd1234 - ACTIVE"), "MonthCodes_m1.txt", "text/plain")
	return msg
}

func Test_consoleService_sendMessage(t *testing.T) {
	var out bytes.Buffer
	svc := newConsoleService(conf, logsvc.NewNopLogger(), log.New(&out, "", 0))

	if !svc.sendMessage(newExportMessage()) {
		t.Fatal("sendMessage() = false; want true")
	}
	body := out.String()
	for _, want := range []string{
		"Subject: [Elimu] Access codes",
		"To: <admin@elite.com>",
		"Content-Type: multipart/mixed; boundary=",
		"codes attached",
		"attachment; filename=MonthCodes_m1.txt",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("sendMessage() output is missing %q", want)
		}
	}

	out.Reset()
	if svc.sendMessage(&core.EmailMessage{Subject: "nobody", BodyStr: "lost"}) {
		t.Error("sendMessage() without recipients = true; want false")
	}
	if out.Len() != 0 {
		t.Errorf("sendMessage() without recipients wrote %q", out.String())
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := NewConsoleServiceMock(conf, logsvc.NewNopLogger())
	svc.SendMessages(newExportMessage(), &core.EmailMessage{To: []mail.Address{{Address: "a@b.c"}}})

	sent := svc.SentMessages()
	if len(sent) != 1 {
		t.Fatalf("SentMessages() = %d messages; want 1", len(sent))
	}
	if sent[0].TextContent != "codes attached" {
		t.Errorf("TextContent = %q; want %q", sent[0].TextContent, "codes attached")
	}
}

func Test_sendgridService_send(t *testing.T) {
	var got struct {
		Personalizations []struct {
			Subject string `json:"subject"`
		} `json:"personalizations"`
		Content []struct {
			Type string `json:"type"`
		} `json:"content"`
		Attachments []struct {
			Filename string `json:"filename"`
		} `json:"attachments"`
	}
	status := http.StatusAccepted
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != endpoint || r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		data, _ := ioutil.ReadAll(r.Body)
		_ = json.Unmarshal(data, &got)
		w.WriteHeader(status)
	}))
	defer srv.Close()

	oldHost := host
	host = srv.URL
	defer func() { host = oldHost }()

	msg := newExportMessage()
	_ = msg.Render()
	svc := NewSendgridService(conf, logsvc.NewNopLogger()).(*sendgridService)

	if err := svc.send(*msg); err != nil {
		t.Fatalf("send() failed: %v", err)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].Subject != "[Elimu] Access codes" {
		t.Errorf("personalizations = %+v", got.Personalizations)
	}
	if len(got.Content) != 1 || got.Content[0].Type != "text/plain" {
		t.Errorf("content = %+v; want text/plain only", got.Content)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Filename != "MonthCodes_m1.txt" {
		t.Errorf("attachments = %+v", got.Attachments)
	}

	status = http.StatusBadRequest
	if err := svc.send(*msg); err == nil {
		t.Error("send() on a rejected request succeeded; want error")
	}
}

func Test_consoleService_Wait(t *testing.T) {
	var out bytes.Buffer
	svc := newConsoleService(conf, logsvc.NewNopLogger(), log.New(&out, "", 0))

	svc.SendMessages(newExportMessage())
	svc.Wait()
	if !strings.Contains(out.String(), "Subject: [Elimu] Access codes") {
		t.Errorf("message not written after Wait(): %q", out.String())
	}
}
