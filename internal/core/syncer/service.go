package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ogurasousui/minijobber-sync/internal/core/identity"
	"github.com/ogurasousui/minijobber-sync/internal/core/plan"
	"github.com/ogurasousui/minijobber-sync/internal/core/snapshot"
	"github.com/ogurasousui/minijobber-sync/internal/core/sqlgen"
)

// SnapshotLoader はリモートの全コレクションを取得します。
type SnapshotLoader interface {
	Load(ctx context.Context) (*snapshot.Snapshot, snapshot.Report)
}

// ApplyResult は適用結果の集計です。件数は文の数ではなく、実際に変更された行数です。
// 変更のない upsert (INSERT 0 0) は数えません。
type ApplyResult struct {
	Inserted int64
	Updated  int64
	// Notices はデータベースが出力した NOTICE / WARNING です。
	Notices []string
}

// Applier は生成したスクリプトをローカルデータベースに適用します。
// rendered は script を描画したテキストで、外部プロセスに渡す実装向けです。
type Applier interface {
	Apply(ctx context.Context, script *sqlgen.Script, rendered string) (ApplyResult, error)
	// ManualCommand は path のスクリプトを手動で適用するためのコマンドを返します。
	ManualCommand(path string) string
}

// ScriptWriter は描画したスクリプトを保存します。
type ScriptWriter interface {
	Write(path, content string) error
}

// Options は 1 回の実行に対する指定です。
type Options struct {
	DryRun bool
	Reset  bool
}

// Result は実行結果です。
type Result struct {
	Report         snapshot.Report
	Plan           *plan.Plan
	ScriptPath     string
	Applied        bool
	Apply          ApplyResult
	ManualCommands []string
	// MappingsUnavailable はドライランで既存マッピングを読めず、空の状態から計画したことを示します。
	MappingsUnavailable bool
}

// Service は取得・計画・適用を順に実行します。
type Service struct {
	loader     SnapshotLoader
	store      identity.Store
	planner    *plan.Planner
	applier    Applier
	writer     ScriptWriter
	scriptPath string
	generator  identity.Generator
	logger     *slog.Logger
}

// Config は Service の依存関係です。
type Config struct {
	Loader     SnapshotLoader
	Store      identity.Store
	Planner    *plan.Planner
	Applier    Applier
	Writer     ScriptWriter
	ScriptPath string
	// Generator が nil の場合は uuid.New を使います。
	Generator identity.Generator
	Logger    *slog.Logger
}

// NewService は Service を生成します。
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		loader:     cfg.Loader,
		store:      cfg.Store,
		planner:    cfg.Planner,
		applier:    cfg.Applier,
		writer:     cfg.Writer,
		scriptPath: cfg.ScriptPath,
		generator:  cfg.Generator,
		logger:     logger,
	}
}

// Run は 1 回の同期を実行します。
// スクリプトは常にファイルへ書き出し、DryRun の場合は適用せずに手動実行用のコマンドを返します。
func (s *Service) Run(ctx context.Context, opts Options) (*Result, error) {
	snap, report := s.loader.Load(ctx)

	// リセット時は全マッピングを削除してから作り直すため、既存分は読み込みません。
	// ドライランはローカル DB が停止していても確認用スクリプトを生成します。
	// その場合の ID は仮のもので、古いマッピングのまま適用すると主キー違反で中断します。
	var existing []identity.Mapping
	unavailable := false
	if !opts.Reset {
		mappings, err := s.store.LoadMappings(ctx)
		switch {
		case err != nil && opts.DryRun:
			s.logger.Warn("could not load existing mappings, planning dry run without them", "err", err)
			unavailable = true
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrLoadMappings, err)
		default:
			existing = mappings
		}
	}
	s.logger.Info("loaded existing mappings", "count", len(existing), "reset", opts.Reset)

	mapper, err := identity.NewMapper(existing, s.generator)
	if err != nil {
		return nil, err
	}

	p, err := s.planner.Build(snap, mapper, plan.Options{Reset: opts.Reset})
	if err != nil {
		return nil, err
	}
	for _, skip := range p.Skips {
		s.logger.Warn("records skipped", "entity", skip.Entity, "dropped", skip.Dropped, "cleared_refs", skip.Cleared)
	}

	rendered, err := p.Script.Render()
	if err != nil {
		return nil, err
	}
	if err := s.writer.Write(s.scriptPath, rendered); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWriteScript, err)
	}
	s.logger.Info("script written", "path", s.scriptPath, "statements", len(p.Script.Statements()), "new_mappings", len(p.NewMappings))

	result := &Result{Report: report, Plan: p, ScriptPath: s.scriptPath, MappingsUnavailable: unavailable}
	if opts.DryRun {
		result.ManualCommands = []string{
			"less " + s.scriptPath,
			s.applier.ManualCommand(s.scriptPath),
		}
		return result, nil
	}

	applied, err := s.applier.Apply(ctx, p.Script, rendered)
	for _, n := range applied.Notices {
		s.logger.Warn("database notice", "message", n)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrApply, err)
	}
	result.Applied = true
	result.Apply = applied
	s.logger.Info("script applied", "inserted", applied.Inserted, "updated", applied.Updated)
	return result, nil
}
