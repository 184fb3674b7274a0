// Package middleware はNeuroBreak開発用バックエンドで使用するGinミドルウェアを提供する。
//
// Bearerトークンの検証、リクエストIDの付与、パニックリカバリ、CORS設定を含む。
// エラー時のレスポンスはすべて {"detail": ...} 形式で返し、
// gatewayclient が期待するエラー契約に合わせる。
package middleware
