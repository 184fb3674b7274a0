package gatewayclient

// InferenceConfig はパイプライン内のテキスト生成パラメータ。
type InferenceConfig struct {
	// ModelID は生成に使用するモデルの識別子。
	ModelID string `json:"modelId"`
	// Temperature はサンプリング温度。
	Temperature float64 `json:"temperature"`
	// TopP はnucleus samplingの累積確率。
	TopP float64 `json:"topP"`
	// TopK は候補トークン数の上限。
	TopK int `json:"topK"`
	// MaxTokens は生成トークン数の上限。
	MaxTokens int `json:"maxTokens"`
	// RepetitionPenalty は繰り返しに対するペナルティ。
	RepetitionPenalty float64 `json:"repetitionPenalty"`
	// PresencePenalty は既出トークンに対するペナルティ。
	PresencePenalty float64 `json:"presencePenalty"`
	// FrequencyPenalty は出現頻度に対するペナルティ。
	FrequencyPenalty float64 `json:"frequencyPenalty"`
	// StopSequences は生成を停止する文字列の一覧。
	StopSequences []string `json:"stopSequences"`
	// Stream はストリーミング出力を要求するかどうか。
	Stream bool `json:"stream"`
}

// GuardConfig はパイプライン内のモデレーション（ガード）設定。
type GuardConfig struct {
	// ModelID はガードに使用するモデルの識別子。
	ModelID string `json:"modelId"`
	// Threshold はブロック判定のしきい値（0〜1）。
	Threshold float64 `json:"threshold"`
	// AutoBlock がtrueの場合、入力がブロック判定されると生成を行わない。
	AutoBlock bool `json:"autoBlock"`
	// Categories は検査対象のカテゴリ。
	Categories []string `json:"categories"`
}

// PipelineRequest はパイプライン実行のリクエスト。
// クライアントは内容を検証せず、そのままJSONとして送信する。
type PipelineRequest struct {
	Prompt          string          `json:"prompt"`
	InferenceConfig InferenceConfig `json:"inferenceConfig"`
	GuardConfig     GuardConfig     `json:"guardConfig"`
}

// ModerationRequest はパイプラインを通さない単独モデレーションのリクエスト。
type ModerationRequest struct {
	Text       string   `json:"text"`
	Threshold  float64  `json:"threshold"`
	ModelID    string   `json:"modelId,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// Verdict はガードの判定結果。
type Verdict string

const (
	// VerdictAllow は問題なしを表す。
	VerdictAllow Verdict = "allow"
	// VerdictFlag は要注意だがブロックはしないことを表す。
	VerdictFlag Verdict = "flag"
	// VerdictBlock はブロックを表す。
	VerdictBlock Verdict = "block"
)

// Severity は判定の深刻度。
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// GuardResult はモデレーションの結果。
type GuardResult struct {
	// Verdict は判定（allow/flag/block）。
	Verdict Verdict `json:"verdict"`
	// Severity は深刻度。
	Severity Severity `json:"severity"`
	// Rationale は判定理由。
	Rationale []string `json:"rationale"`
	// Categories は該当したカテゴリ。
	Categories []string `json:"categories"`
}

// PipelineMetrics は生成処理の計測値。
type PipelineMetrics struct {
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	LatencyMs        float64 `json:"latencyMs"`
}

// PipelineResponse はパイプライン実行の結果。
// 生成テキストと、途中で得られたガード判定を含む。
type PipelineResponse struct {
	// Output は生成されたテキスト。Blockedの場合は空。
	Output string `json:"output"`
	// Blocked は入力ガードによって生成が中止されたかどうか。
	Blocked bool `json:"blocked"`
	// InputGuard はプロンプトに対するガード判定。
	InputGuard *GuardResult `json:"inputGuard,omitempty"`
	// OutputGuard は生成結果に対するガード判定。
	OutputGuard *GuardResult `json:"outputGuard,omitempty"`
	// Metrics は生成処理の計測値。
	Metrics PipelineMetrics `json:"metrics"`
}
