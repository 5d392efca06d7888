package dingsdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify(t *testing.T) {
	var got DingNotify
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	result, err := NewDingSdk(srv.URL).Notify(Text("run 1 verified"))
	require.NoError(t, err)
	assert.Equal(t, "ok", result.ErrMsg)
	assert.Equal(t, "text", got.MsgType)
	assert.Equal(t, "run 1 verified", got.Text.Content)
	assert.False(t, got.At.IsAtAll)
}

func TestNotify_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":310000,"errmsg":"keywords not in content"}`))
	}))
	defer srv.Close()
	_, err := NewDingSdk(srv.URL).Notify(Text("x"))
	assert.EqualError(t, err, "code: 310000, err: keywords not in content")

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	_, err = NewDingSdk(bad.URL).Notify(Text("x"))
	assert.EqualError(t, err, "response status code: 502")
}

func TestNotify_Disabled(t *testing.T) {
	sdk := NewDingSdk("")
	assert.False(t, sdk.Enabled())
	result, err := sdk.Notify(Text("x"))
	assert.NoError(t, err)
	assert.Nil(t, result)
}
