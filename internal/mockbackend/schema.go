package mockbackend

import (
	"github.com/nao1215/neurobreak/pkg/gatewayclient"
)

// fieldError はFastAPIの検証エラーと同じ形のエラー要素。
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func missing(loc ...string) fieldError {
	return fieldError{Loc: append([]string{"body"}, loc...), Msg: "Field required", Type: "missing"}
}

func outOfRange(loc ...string) fieldError {
	return fieldError{Loc: append([]string{"body"}, loc...), Msg: "Input should be between 0 and 1", Type: "value_error"}
}

func invalidJSON(err error) fieldError {
	return fieldError{Loc: []string{"body"}, Msg: "Invalid JSON: " + err.Error(), Type: "json_invalid"}
}

// pipelineBody は /api/pipeline/run のリクエストボディ。
// 必須フィールドの欠落を検出するためポインタで受け取る。
type pipelineBody struct {
	Prompt          *string                        `json:"prompt"`
	InferenceConfig *gatewayclient.InferenceConfig `json:"inferenceConfig"`
	GuardConfig     *gatewayclient.GuardConfig     `json:"guardConfig"`
}

func (b pipelineBody) validate() []fieldError {
	var errs []fieldError
	if b.Prompt == nil || *b.Prompt == "" {
		errs = append(errs, missing("prompt"))
	}
	if b.InferenceConfig == nil {
		errs = append(errs, missing("inferenceConfig"))
	}
	if b.GuardConfig == nil {
		errs = append(errs, missing("guardConfig"))
	} else if t := b.GuardConfig.Threshold; t < 0 || t > 1 {
		errs = append(errs, outOfRange("guardConfig", "threshold"))
	}
	return errs
}

// moderationBody は /api/moderate のリクエストボディ。
type moderationBody struct {
	Text       *string  `json:"text"`
	Threshold  *float64 `json:"threshold"`
	ModelID    string   `json:"modelId"`
	Categories []string `json:"categories"`
}

func (b moderationBody) validate() []fieldError {
	var errs []fieldError
	if b.Text == nil {
		errs = append(errs, missing("text"))
	}
	if b.Threshold == nil {
		errs = append(errs, missing("threshold"))
	} else if t := *b.Threshold; t < 0 || t > 1 {
		errs = append(errs, outOfRange("threshold"))
	}
	return errs
}
