package executor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/minijobber-sync/internal/core/identity"
	"github.com/ogurasousui/minijobber-sync/internal/core/sqlgen"
	"github.com/ogurasousui/minijobber-sync/internal/core/syncer"
)

const (
	fieldSeparator  = "\x1f"
	recordSeparator = "\x1e"

	mappingTableExistsSQL = "SELECT to_regclass('public.mj_cloud_id_map') IS NOT NULL;\n"
	selectMappingsSQL     = "SELECT cloud_id, table_name, local_id FROM mj_cloud_id_map ORDER BY table_name, cloud_id;\n"
)

var (
	ErrCommandRequired = errors.New("executor: command is required")
	ErrCommandFailed   = errors.New("executor: command failed")
)

// Psql は外部の psql プロセス (docker compose exec 経由を含む) にスクリプトを渡して適用します。
type Psql struct {
	command []string
	workdir string
	logger  *slog.Logger
}

// NewPsql は Psql を生成します。command は psql を起動するコマンド、workdir はその作業ディレクトリです。
func NewPsql(command []string, workdir string, logger *slog.Logger) (*Psql, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, ErrCommandRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Psql{command: append([]string(nil), command...), workdir: workdir, logger: logger}, nil
}

// Apply はスクリプトを標準入力で渡し、最初のエラーで停止させます。
func (p *Psql) Apply(ctx context.Context, _ *sqlgen.Script, rendered string) (syncer.ApplyResult, error) {
	stdout, stderr, err := p.run(ctx, rendered, "-v", "ON_ERROR_STOP=1")
	result := syncer.ApplyResult{Notices: notices(stderr)}
	if err != nil {
		return result, commandError(err, stdout, stderr)
	}
	result.Inserted, result.Updated = countTags(stdout)
	return result, nil
}

// ManualCommand は path のスクリプトを手動で適用するシェルコマンドを返します。
func (p *Psql) ManualCommand(path string) string {
	args := append(append([]string(nil), p.command...), "-v", "ON_ERROR_STOP=1")
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = shellQuote(a)
	}
	cmd := strings.Join(quoted, " ") + " < " + shellQuote(path)
	if p.workdir != "" {
		cmd = "cd " + shellQuote(p.workdir) + " && " + cmd
	}
	return cmd
}

// LoadMappings は psql 経由で既存マッピングを読み込みます。テーブルが存在しない場合は空を返します。
func (p *Psql) LoadMappings(ctx context.Context) ([]identity.Mapping, error) {
	stdout, stderr, err := p.run(ctx, mappingTableExistsSQL, "-v", "ON_ERROR_STOP=1", "-A", "-t")
	if err != nil {
		return nil, commandError(err, stdout, stderr)
	}
	if strings.TrimSpace(stdout) != "t" {
		p.logger.Info("mapping table not found, starting with empty mappings")
		return nil, nil
	}

	stdout, stderr, err = p.run(ctx, selectMappingsSQL, "-v", "ON_ERROR_STOP=1", "-A", "-t", "-F", fieldSeparator, "-R", recordSeparator)
	if err != nil {
		return nil, commandError(err, stdout, stderr)
	}
	return parseMappings(stdout)
}

func (p *Psql) run(ctx context.Context, stdin string, extra ...string) (string, string, error) {
	args := append(append([]string(nil), p.command[1:]...), extra...)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	cmd.Dir = p.workdir
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Debug("running psql", "command", p.command[0], "args", args, "workdir", p.workdir)
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func parseMappings(out string) ([]identity.Mapping, error) {
	var mappings []identity.Mapping
	for _, record := range strings.Split(out, recordSeparator) {
		record = strings.Trim(record, "\n")
		if record == "" {
			continue
		}
		fields := strings.Split(record, fieldSeparator)
		if len(fields) != 3 {
			return nil, fmt.Errorf("executor: unexpected mapping row %q", record)
		}
		local, err := uuid.Parse(fields[2])
		if err != nil {
			return nil, fmt.Errorf("executor: mapping %s/%s: %w", fields[1], fields[0], err)
		}
		mappings = append(mappings, identity.Mapping{RemoteID: fields[0], EntityType: identity.EntityType(fields[1]), LocalID: local})
	}
	return mappings, nil
}

// countTags は psql が出力したコマンドタグから INSERT / UPDATE で変更された行数を合計します。
func countTags(stdout string) (inserted, updated int64) {
	sc := bufio.NewScanner(strings.NewReader(stdout))
	for sc.Scan() {
		tag := pgconn.NewCommandTag(strings.TrimSpace(sc.Text()))
		switch {
		case tag.Insert():
			inserted += tag.RowsAffected()
		case tag.Update():
			updated += tag.RowsAffected()
		}
	}
	return inserted, updated
}

func notices(stderr string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.Contains(line, "NOTICE") || strings.Contains(line, "WARNING") {
			out = append(out, line)
		}
	}
	return out
}

func commandError(err error, stdout, stderr string) error {
	output := strings.TrimSpace(strings.TrimSpace(stderr) + "\n" + strings.TrimSpace(stdout))
	if output == "" {
		return fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}
	return fmt.Errorf("%w: %w\n%s", ErrCommandFailed, err, output)
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`&|;<>()*?[]#~!{}") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
