package dingsdk

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

type DingContent struct {
	Content string `json:"content"`
}
type DingAt struct {
	IsAtAll bool `json:"isAtAll"`
}
type DingNotify struct {
	MsgType string      `json:"msgtype"`
	Text    DingContent `json:"text"`
	At      DingAt      `json:"at"`
}

type DingResult struct {
	ErrCode int64  `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Text is a plain text notification that does not mention anyone.
func Text(content string) *DingNotify {
	return &DingNotify{
		MsgType: "text",
		Text: DingContent{
			Content: content,
		},
		At: DingAt{
			IsAtAll: false,
		},
	}
}

type DingSdk struct {
	url    string
	client *http.Client
}

func NewDingSdk(url string) *DingSdk {
	sdk := &DingSdk{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	return sdk
}

// Enabled is false when no webhook is configured; Notify is then a no-op.
func (sdk *DingSdk) Enabled() bool {
	return sdk != nil && sdk.url != ""
}

func (sdk *DingSdk) Notify(notify *DingNotify) (*DingResult, error) {
	if !sdk.Enabled() {
		return nil, nil
	}
	requestJson, err := json.Marshal(notify)
	if err != nil {
		return nil, errors.Wrap(err, "marshal notify")
	}
	req, err := http.NewRequest("POST", sdk.url, bytes.NewReader(requestJson))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accepts", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := sdk.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "post notify")
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, errors.Errorf("response status code: %d", resp.StatusCode)
	}
	respBody, _ := ioutil.ReadAll(resp.Body)
	dingResult := new(DingResult)
	err = json.Unmarshal(respBody, dingResult)
	if err != nil {
		return nil, errors.Wrap(err, "decode notify result")
	}
	if dingResult.ErrCode != 0 || dingResult.ErrMsg != "ok" {
		return nil, errors.Errorf("code: %d, err: %s", dingResult.ErrCode, dingResult.ErrMsg)
	}
	return dingResult, nil
}
