package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/metrex/internal/storage"
	"github.com/wonny/metrex/pkg/database"
)

// dbCheckCmd represents the db-check command
var dbCheckCmd = &cobra.Command{
	Use:   "db-check",
	Short: "PostgreSQL 랭킹 미러 연결 점검",
	Long: `DATABASE_URL 연결을 점검하고 랭킹 테이블을 준비합니다.

이 명령어는:
- 데이터베이스 연결 생성
- Ping 테스트
- 스키마/테이블 생성 (없을 때만)
- Connection Pool 통계 표시

Example:
  go run ./cmd/metrex db-check
  go run ./cmd/metrex db-check --config prod.env`,
	RunE: runDBCheck,
}

func init() {
	rootCmd.AddCommand(dbCheckCmd)
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== metrex Database Check ===")

	cfg, _, err := loadRuntime()
	if err != nil {
		return err
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Println("Connecting to database...")
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()

	start := time.Now()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("❌ Failed to ping database: %w", err)
	}
	fmt.Printf("✅ Ping successful (%v)\n", time.Since(start))

	pg := storage.NewPostgresRankStore(db.Pool, cfg.Database.Schema, cfg.Data.Timeframe)
	if err := pg.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("❌ Failed to prepare schema: %w", err)
	}
	fmt.Printf("✅ Schema %q ready\n\n", cfg.Database.Schema)

	stat := db.Pool.Stat()
	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Max Connections: %d\n", stat.MaxConns())
	fmt.Printf("   Total Connections: %d\n", stat.TotalConns())
	fmt.Printf("   Idle Connections: %d\n", stat.IdleConns())
	fmt.Printf("   Acquire Count: %d\n", stat.AcquireCount())

	fmt.Println("\n✅ All checks passed!")
	return nil
}

// maskPassword hides the password of a database URL for display
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
