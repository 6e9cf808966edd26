package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ogurasousui/minijobber-sync/internal/core/identity"
	"github.com/ogurasousui/minijobber-sync/internal/core/sqlgen"
	"github.com/ogurasousui/minijobber-sync/internal/core/syncer"
	pgdb "github.com/ogurasousui/minijobber-sync/internal/platform/db/postgres"
)

// ErrStalePlan は計画後に別の同期がマッピングを書き込んだことを示します。スクリプトは全てロールバックされます。
var ErrStalePlan = errors.New("executor: mappings changed since the script was planned")

// Migrator は同期基盤のマイグレーションを適用します。
type Migrator func(ctx context.Context) error

// Postgres は pgx で直接接続し、全ての文をパラメータ付きで 1 トランザクション内に適用します。
type Postgres struct {
	db      pgdb.Queryer
	tx      *pgdb.TransactionManager
	store   identity.Store
	migrate Migrator
	target  string
	logger  *slog.Logger
}

// PostgresConfig は Postgres の依存関係です。
type PostgresConfig struct {
	DB           pgdb.Queryer
	Transactions *pgdb.TransactionManager
	Store        identity.Store
	Migrate      Migrator
	// Target は手動適用コマンドに表示する接続先 (パスワードを含めないこと) です。
	Target string
	Logger *slog.Logger
}

// NewPostgres は Postgres を生成します。
func NewPostgres(cfg PostgresConfig) *Postgres {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		db:      cfg.DB,
		tx:      cfg.Transactions,
		store:   cfg.Store,
		migrate: cfg.Migrate,
		target:  cfg.Target,
		logger:  logger,
	}
}

// LoadMappings は読み取り専用トランザクション内で既存マッピングを読み込みます。
func (p *Postgres) LoadMappings(ctx context.Context) ([]identity.Mapping, error) {
	var out []identity.Mapping
	err := p.tx.WithinReadOnly(ctx, func(ctx context.Context) error {
		mappings, err := p.store.LoadMappings(ctx)
		out = mappings
		return err
	})
	return out, err
}

// Apply はマイグレーションを適用した後、スクリプトの全文を順に実行します。
func (p *Postgres) Apply(ctx context.Context, script *sqlgen.Script, _ string) (syncer.ApplyResult, error) {
	var result syncer.ApplyResult
	if p.migrate != nil {
		if err := p.migrate(ctx); err != nil {
			return result, fmt.Errorf("executor: migrate: %w", err)
		}
	}

	stmts := script.Statements()
	err := p.tx.WithinReadWrite(ctx, func(ctx context.Context) error {
		exec := pgdb.QueryerFromContext(ctx, p.db)
		for i, st := range stmts {
			tag, err := exec.Exec(ctx, st.SQL, bindArgs(st.Args)...)
			if err != nil {
				if pgdb.IsUniqueViolation(err) && strings.HasPrefix(st.SQL, "INSERT INTO mj_cloud_id_map") {
					return fmt.Errorf("%w: %w", ErrStalePlan, err)
				}
				return fmt.Errorf("executor: statement %d of %d (%s): %w", i+1, len(stmts), summarize(st.SQL), err)
			}
			switch {
			case tag.Insert():
				result.Inserted += tag.RowsAffected()
			case tag.Update():
				result.Updated += tag.RowsAffected()
			}
		}
		return nil
	})
	if err != nil {
		return syncer.ApplyResult{}, err
	}
	p.logger.Debug("statements applied", "count", len(stmts))
	return result, nil
}

// ManualCommand は path のスクリプトを psql で手動適用するコマンドを返します。
func (p *Postgres) ManualCommand(path string) string {
	return "psql " + shellQuote(p.target) + " -v ON_ERROR_STOP=1 -f " + shellQuote(path)
}

// bindArgs は decimal をテキスト表現に変換し、numeric 列へそのまま渡せるようにします。
func bindArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case decimal.Decimal:
			out[i] = v.String()
		case *decimal.Decimal:
			if v == nil {
				out[i] = nil
			} else {
				out[i] = v.String()
			}
		default:
			out[i] = a
		}
	}
	return out
}

func summarize(sql string) string {
	const limit = 60
	if len(sql) <= limit {
		return sql
	}
	return sql[:limit] + "..."
}
