package mockbackend

import (
	"strings"

	"github.com/nao1215/neurobreak/pkg/gatewayclient"
)

// generate はモデルの代わりにプロンプトを大文字にして返す。
// stopSequencesの最初の出現位置で打ち切り、maxTokensが正ならその語数に切り詰める。
// 戻り値はテキスト、プロンプトの語数、生成した語数。
func generate(prompt string, cfg gatewayclient.InferenceConfig) (string, int, int) {
	output := strings.ToUpper(prompt)
	for _, stop := range cfg.StopSequences {
		if stop == "" {
			continue
		}
		if i := strings.Index(output, strings.ToUpper(stop)); i >= 0 {
			output = output[:i]
		}
	}

	words := strings.Fields(output)
	if cfg.MaxTokens > 0 && len(words) > cfg.MaxTokens {
		words = words[:cfg.MaxTokens]
		output = strings.Join(words, " ")
	}
	return output, len(strings.Fields(prompt)), len(words)
}
