// Package gatewayclient はフロントエンドからNeuroBreakバックエンドを呼び出すクライアントを提供する。
//
// パイプライン実行（/api/pipeline/run）と単独モデレーション（/api/moderate）の
// 2つの操作を持つ。どちらもJSONボディでPOSTし、共通のレスポンス処理で
// 成功時は型付きの値を、失敗時はメッセージ1つを持つ GatewayError を返す。
// リトライ・キャッシュ・レート制限は行わない。1回の呼び出しは1回の通信に対応する。
package gatewayclient
