package mockbackend

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/nao1215/neurobreak/pkg/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Call はバックエンドへの1回の呼び出しの記録。
type Call struct {
	// ID は記録の一意識別子（UUID）。
	ID string `json:"id"`
	// RequestID はX-Request-IDヘッダーの値。
	RequestID string `json:"request_id"`
	// ClientID はトークンのクライアントID。認証無効時は空。
	ClientID string `json:"client_id"`
	// Path はリクエストパス。
	Path string `json:"path"`
	// Status はレスポンスのHTTPステータスコード。
	Status int `json:"status"`
	// Verdict はガードの最終判定。判定前に失敗した場合は空。
	Verdict string `json:"verdict"`
	// CreatedAt は記録日時。
	CreatedAt time.Time `json:"created_at"`
}

// callStore は呼び出し履歴をSQLiteに保存する。
type callStore struct {
	db *sql.DB
}

// openCallStore はSQLiteを開き、マイグレーションを適用する。
func openCallStore(ctx context.Context, dbPath string, logger *logrus.Entry) (*callStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if dbPath == ":memory:" {
		// :memory: は接続ごとに別DBになる
		db.SetMaxOpenConns(1)
	}

	if _, err := migration.Run(ctx, db, migrationsFS, "migrations", logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}
	return &callStore{db: db}, nil
}

// record は呼び出しを1件保存する。IDと日時は未設定なら補完する。
func (s *callStore) record(ctx context.Context, call Call) error {
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (id, request_id, client_id, path, status, verdict, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		call.ID, call.RequestID, call.ClientID, call.Path, call.Status, call.Verdict, call.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("呼び出し履歴の保存に失敗: %w", err)
	}
	return nil
}

// list は新しい順に最大limit件の呼び出しを返す。
func (s *callStore) list(ctx context.Context, limit int) ([]Call, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, client_id, path, status, verdict, created_at
		FROM calls
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("呼び出し履歴の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	calls := make([]Call, 0, limit)
	for rows.Next() {
		var c Call
		if err := rows.Scan(&c.ID, &c.RequestID, &c.ClientID, &c.Path, &c.Status, &c.Verdict, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("呼び出し履歴の読み取りに失敗: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

func (s *callStore) close() error {
	return s.db.Close()
}
