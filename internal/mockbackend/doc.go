// Package mockbackend はNeuroBreak APIと同じHTTP契約を話す開発用バックエンドを提供する。
//
// /api/pipeline/run と /api/moderate を実装し、モデルの代わりに
// キーワードベースのガードと決定的なテキスト生成を行う。
// エラーはFastAPIと同じく {"detail": ...} 形式で返す。
// 呼び出し履歴はSQLiteに保存し、/api/calls で参照できる。
package mockbackend
